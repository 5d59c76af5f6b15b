package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantdesk-hq/tradelab-client/internal/app"
	"github.com/quantdesk-hq/tradelab-client/internal/config"
	"github.com/quantdesk-hq/tradelab-client/internal/logger"
)

// state is shared by every subcommand once the root pre-run has loaded it.
type state struct {
	cfg *config.Config
	log logger.Logger

	baseURL  string
	timeout  int64
	logLevel string
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	st := &state{}

	rootCmd := &cobra.Command{
		Use:           "tradelab",
		Short:         "Client for the trading research backend",
		Long:          "tradelab calls the trading research backend: price series, indicators, the RSI strategy and backtests.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&st.baseURL, "base-url", "", "Backend base URL (overrides API_BASE_URL)")
	rootCmd.PersistentFlags().Int64Var(&st.timeout, "timeout", -1, "Request timeout in seconds, 0 for none (overrides REQUEST_TIMEOUT_SECONDS)")
	rootCmd.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(
		newRSICmd(st),
		newOHLCCmd(st),
		newRSIStrategyCmd(st),
		newIndicatorCmd(st),
		newATRCmd(st),
		newStatusCmd(st),
		newStrategiesCmd(st),
		newBacktestCmd(st),
		newWatchCmd(st),
		newConfigCmd(st),
	)
	return rootCmd
}

func (st *state) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("base-url") {
		cfg.APIBaseURL = st.baseURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.RequestTimeoutSeconds = st.timeout
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = st.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	st.cfg = cfg
	st.log = log
	return nil
}

// runtime builds the backend runtime for a command; sinks only for watch.
func (st *state) runtime(cmd *cobra.Command, withSinks bool) (*app.Runtime, error) {
	return app.NewRuntime(cmd.Context(), st.cfg, st.log, withSinks)
}

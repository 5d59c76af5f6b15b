package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantdesk-hq/tradelab-client/internal/domain"
	"github.com/quantdesk-hq/tradelab-client/pkg/tradeapi"
)

// call wraps the common "build client, call, print" flow.
func (st *state) call(cmd *cobra.Command, fn func(ctx context.Context, c *tradeapi.Client) (json.RawMessage, error)) error {
	rt, err := st.runtime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	out, err := fn(cmd.Context(), rt.Client)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func newRSICmd(st *state) *cobra.Command {
	var (
		closes []float64
		period int
	)
	cmd := &cobra.Command{
		Use:     "rsi",
		Short:   "Compute RSI on the backend for a close price series",
		Example: `  tradelab rsi --close 44.3,44.1,44.9,45.2 --period 14`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.call(cmd, func(ctx context.Context, c *tradeapi.Client) (json.RawMessage, error) {
				return c.GetRSI(ctx, closes, period)
			})
		},
	}
	cmd.Flags().Float64SliceVar(&closes, "close", nil, "Close prices, oldest first")
	cmd.Flags().IntVar(&period, "period", 14, "RSI window size")
	_ = cmd.MarkFlagRequired("close")
	return cmd
}

func newOHLCCmd(st *state) *cobra.Command {
	var timeframe string
	cmd := &cobra.Command{
		Use:   "ohlc SYMBOL",
		Short: "Fetch the price series for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.call(cmd, func(ctx context.Context, c *tradeapi.Client) (json.RawMessage, error) {
				return c.GetOHLC(ctx, args[0], timeframe)
			})
		},
	}
	cmd.Flags().StringVar(&timeframe, "timeframe", "", "Bar timeframe such as 1h or 4h (default from config)")
	return cmd
}

func newRSIStrategyCmd(st *state) *cobra.Command {
	var fromResponse bool
	cmd := &cobra.Command{
		Use:   "rsi-strategy RSI_JSON",
		Short: "Evaluate the RSI strategy on an RSI result",
		Long: `Evaluate the backend's RSI strategy. RSI_JSON is the rsi value to send, inline or "-" for stdin.
With --from-rsi-response the argument is a full RSI response and its rsi member is forwarded.`,
		Example: `  tradelab rsi --close 1,2,3 | tradelab rsi-strategy --from-rsi-response -`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rsi, err := readJSONArg(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if fromResponse {
				if rsi, err = domain.ExtractRSI(rsi); err != nil {
					return err
				}
			}
			return st.call(cmd, func(ctx context.Context, c *tradeapi.Client) (json.RawMessage, error) {
				return c.GetRSIStrategy(ctx, rsi)
			})
		},
	}
	cmd.Flags().BoolVar(&fromResponse, "from-rsi-response", false, "Treat the argument as a full RSI response")
	return cmd
}

func newIndicatorCmd(st *state) *cobra.Command {
	var (
		values []float64
		period int
	)
	cmd := &cobra.Command{
		Use:       "indicator NAME",
		Short:     "Compute a single-series indicator (ema, sma) on the backend",
		ValidArgs: []string{"ema", "sma"},
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.call(cmd, func(ctx context.Context, c *tradeapi.Client) (json.RawMessage, error) {
				return c.GetIndicator(ctx, args[0], values, period)
			})
		},
	}
	cmd.Flags().Float64SliceVar(&values, "values", nil, "Input series, oldest first")
	cmd.Flags().IntVar(&period, "period", 14, "Indicator period")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func newStatusCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.call(cmd, func(ctx context.Context, c *tradeapi.Client) (json.RawMessage, error) {
				return c.Status(ctx)
			})
		},
	}
}

func newStrategiesCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List strategies the backend offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.call(cmd, func(ctx context.Context, c *tradeapi.Client) (json.RawMessage, error) {
				return c.ListStrategies(ctx)
			})
		},
	}
}

func newATRCmd(st *state) *cobra.Command {
	var (
		high, low, closes []float64
		period            int
	)
	cmd := &cobra.Command{
		Use:     "atr",
		Short:   "Compute the Average True Range on the backend",
		Example: `  tradelab atr --high 11,12,13 --low 9,10,11 --close 10,11,12 --period 2`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.call(cmd, func(ctx context.Context, c *tradeapi.Client) (json.RawMessage, error) {
				return c.GetATR(ctx, high, low, closes, period)
			})
		},
	}
	cmd.Flags().Float64SliceVar(&high, "high", nil, "High prices, oldest first")
	cmd.Flags().Float64SliceVar(&low, "low", nil, "Low prices, oldest first")
	cmd.Flags().Float64SliceVar(&closes, "close", nil, "Close prices, oldest first")
	cmd.Flags().IntVar(&period, "period", 14, "ATR period")
	for _, name := range []string{"high", "low", "close"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newBacktestCmd(st *state) *cobra.Command {
	var (
		req                           tradeapi.BacktestRequest
		rsiPeriod                     int
		oversold, overbought, capital float64
		commission, positionSize      float64
	)
	cmd := &cobra.Command{
		Use:   "backtest TICKER",
		Short: "Run a strategy backtest on the backend",
		Long:  "Run a strategy backtest on the backend. Numeric flags left unset fall back to the backend's defaults.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Ticker = args[0]
			f := cmd.Flags()
			if f.Changed("rsi-period") {
				req.RSIPeriod = &rsiPeriod
			}
			setIfChanged := func(name string, val *float64, dst **float64) {
				if f.Changed(name) {
					*dst = val
				}
			}
			setIfChanged("oversold", &oversold, &req.Oversold)
			setIfChanged("overbought", &overbought, &req.Overbought)
			setIfChanged("capital", &capital, &req.InitialCapital)
			setIfChanged("commission", &commission, &req.Commission)
			setIfChanged("position-size", &positionSize, &req.PositionSize)
			return st.call(cmd, func(ctx context.Context, c *tradeapi.Client) (json.RawMessage, error) {
				return c.Backtest(ctx, req)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.StrategyType, "strategy", "rsi", "Strategy type")
	f.StringVar(&req.Period, "period", "", "Data period such as 1mo (backend default when empty)")
	f.StringVar(&req.Interval, "interval", "", "Data interval such as 1h (backend default when empty)")
	f.IntVar(&rsiPeriod, "rsi-period", 0, "RSI period")
	f.Float64Var(&oversold, "oversold", 0, "Oversold threshold")
	f.Float64Var(&overbought, "overbought", 0, "Overbought threshold")
	f.Float64Var(&capital, "capital", 0, "Initial capital")
	f.Float64Var(&commission, "commission", 0, "Commission rate")
	f.Float64Var(&positionSize, "position-size", 0, "Position size as a fraction of capital")
	return cmd
}

func newWatchCmd(st *state) *cobra.Command {
	var (
		symbols []string
		once    bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll price, RSI and strategy for symbols and forward results to sinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(symbols) > 0 {
				st.cfg.WatchSymbols = symbols
			}
			rt, err := st.runtime(cmd, true)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.Close(); err != nil {
					st.log.ErrorObj("sink close failed", "error", err.Error())
				}
			}()

			w, err := rt.Watcher()
			if err != nil {
				return err
			}
			if once {
				n, err := w.RunOnce(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "published %d event(s)\n", n)
				return err
			}
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Symbols to watch (overrides WATCH_SYMBOLS)")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")
	return cmd
}

func newConfigCmd(st *state) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := json.Marshal(st.cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	})
	return configCmd
}

package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func testEvent() Event {
	return NewEvent(KindRSIStrategy, "BTCUSD", "1h", json.RawMessage(`{"buy_signals":1}`))
}

func TestSQSSinkSendSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	sink := &sqsSink{id: "q", queueURL: "https://example.com/queue", client: client, log: noopLogger{}}

	if err := sink.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["symbol"]
	if !ok || aws.ToString(attr.StringValue) != "BTCUSD" || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("symbol attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"payload":{"buy_signals":1}`) {
		t.Fatalf("MessageBody missing payload: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestSQSSinkSendError(t *testing.T) {
	sink := &sqsSink{id: "q", queueURL: "https://example.com/queue", client: &fakeSQSClient{err: errors.New("boom")}, log: noopLogger{}}
	if err := sink.Send(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected error from Send")
	}
}

func TestSNSSinkSendSuccess(t *testing.T) {
	client := &fakeSNSClient{}
	sink := &snsSink{id: "t", topicARN: "arn:aws:sns:::topic", client: client, log: noopLogger{}}

	if err := sink.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["kind"]
	if !ok || aws.ToString(attr.StringValue) != KindRSIStrategy {
		t.Fatalf("kind attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"symbol":"BTCUSD"`) {
		t.Fatalf("Message missing symbol: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSSinkSendError(t *testing.T) {
	sink := &snsSink{id: "t", topicARN: "arn:aws:sns:::topic", client: &fakeSNSClient{err: errors.New("boom")}, log: noopLogger{}}
	if err := sink.Send(context.Background(), testEvent()); err == nil {
		t.Fatalf("expected error from Send")
	}
}

func TestNewSQSSinkWithStaticCredentials(t *testing.T) {
	sink, err := newSQSSink(context.Background(), SinkConfig{
		ID:   "q",
		Type: TypeSQS,
		SQS: &SQSSinkConfig{
			QueueURL:    "http://localhost:4566/000000000000/signals",
			Region:      "us-east-1",
			Endpoint:    "http://localhost:4566",
			Credentials: &AWSCredentials{AccessKeyID: "test", SecretAccessKey: "test"},
		},
	}, nil)
	if err != nil {
		t.Fatalf("newSQSSink: %v", err)
	}
	if sink.Type() != TypeSQS || sink.ID() != "q" {
		t.Fatalf("unexpected sink %s/%s", sink.Type(), sink.ID())
	}
}

package aws

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/smithy-go"
)

type fakeSQS struct {
	inputs  []sqs.SendMessageInput
	sendErr error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, *params)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &sqs.SendMessageOutput{}, nil
}

func TestSendOrderMessage(t *testing.T) {
	fake := &fakeSQS{}
	p := NewPublisher(fake, "https://sqs.test/queue")

	err := p.SendOrderMessage(context.Background(), `{"order_id":"order-1"}`, map[string]string{
		"event":    "order.confirmed",
		"order_id": "order-1",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(fake.inputs) != 1 {
		t.Fatalf("expected one send, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if *in.QueueUrl != "https://sqs.test/queue" {
		t.Fatalf("unexpected queue url: %s", *in.QueueUrl)
	}
	if *in.MessageBody != `{"order_id":"order-1"}` {
		t.Fatalf("unexpected body: %s", *in.MessageBody)
	}
	attr, ok := in.MessageAttributes["event"]
	if !ok || *attr.StringValue != "order.confirmed" || *attr.DataType != "String" {
		t.Fatalf("unexpected event attribute: %+v", attr)
	}
}

func TestSendOrderMessage_NoAttributes(t *testing.T) {
	fake := &fakeSQS{}
	p := NewPublisher(fake, "https://sqs.test/queue")

	if err := p.SendOrderMessage(context.Background(), "body", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if fake.inputs[0].MessageAttributes != nil {
		t.Fatal("expected no message attributes")
	}
}

func TestSendOrderMessage_Error(t *testing.T) {
	fake := &fakeSQS{sendErr: errors.New("queue unavailable")}
	p := NewPublisher(fake, "https://sqs.test/queue")

	if err := p.SendOrderMessage(context.Background(), "body", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestSendOrderMessage_APIErrorCode(t *testing.T) {
	fake := &fakeSQS{sendErr: &smithy.GenericAPIError{Code: "AccessDenied", Message: "not allowed"}}
	p := NewPublisher(fake, "https://sqs.test/queue")

	err := p.SendOrderMessage(context.Background(), "body", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "AccessDenied") {
		t.Fatalf("expected error code surfaced, got %v", err)
	}
}

package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpulse/feedwire/internal/domain"
)

type stubPublisher struct {
	id     string
	events []Event
	err    error
}

func (p *stubPublisher) ID() string   { return p.id }
func (p *stubPublisher) Type() string { return TypeHTTP }

func (p *stubPublisher) Publish(_ context.Context, evt Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func TestFanoutDeliversToEveryPublisher(t *testing.T) {
	a := &stubPublisher{id: "a"}
	b := &stubPublisher{id: "b"}
	fanout := NewFanout([]Publisher{a, b}, nil)

	art := domain.Article{
		SourceID:    3,
		OriginalID:  "abc",
		Title:       "Win",
		ArticleURL:  "https://example.com/a",
		PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	fanout.ArticleIngested(context.Background(), domain.CategorySports, art)

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, "SPORTS", a.events[0].Category)
	assert.Equal(t, "abc", a.events[0].OriginalID)
}

func TestFanoutSwallowsPublisherFailure(t *testing.T) {
	failing := &stubPublisher{id: "down", err: errors.New("sink down")}
	healthy := &stubPublisher{id: "up"}
	fanout := NewFanout([]Publisher{failing, healthy}, nil)

	fanout.ArticleIngested(context.Background(), domain.CategorySports, domain.Article{OriginalID: "abc"})

	require.Len(t, healthy.events, 1, "one sink failing must not starve the others")
}

type fakeSQSClient struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (c *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.inputs = append(c.inputs, params)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSSenderEncodesEvent(t *testing.T) {
	client := &fakeSQSClient{}
	sender := &awsSQSSender{
		queueURL: "https://sqs.example.com/q",
		client:   client,
		log:      ensureLogger(nil),
	}

	evt := Event{
		SourceID:   1,
		Category:   "SPORTS",
		OriginalID: "abc",
		Title:      "Win",
		ArticleURL: "https://example.com/a",
	}
	require.NoError(t, sender.Send(context.Background(), evt))

	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	assert.Equal(t, "https://sqs.example.com/q", aws.ToString(input.QueueUrl))
	assert.Equal(t, "SPORTS", aws.ToString(input.MessageAttributes["category"].StringValue))

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(input.MessageBody)), &decoded))
	assert.Equal(t, evt.OriginalID, decoded.OriginalID)
	assert.Equal(t, evt.ArticleURL, decoded.ArticleURL)
}

func TestSQSSenderWrapsClientError(t *testing.T) {
	sender := &awsSQSSender{
		queueURL: "https://sqs.example.com/q",
		client:   &fakeSQSClient{err: errors.New("throttled")},
		log:      ensureLogger(nil),
	}

	err := sender.Send(context.Background(), Event{OriginalID: "abc"})
	require.ErrorContains(t, err, "send message to sqs")
}

func TestDefaultRegistryKnowsConfiguredTypes(t *testing.T) {
	reg := DefaultRegistry()

	_, err := reg.PublisherFor(context.Background(), Config{ID: "x", Type: "carrier-pigeon"}, nil)
	require.Error(t, err)

	pub, err := reg.PublisherFor(context.Background(), Config{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPConfig{URL: "https://hooks.example.com", Method: "POST", TimeoutSeconds: 5},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hook", pub.ID())
	assert.Equal(t, TypeHTTP, pub.Type())
}

func TestBuildAll(t *testing.T) {
	cfgs := []Config{
		{ID: "a", Type: TypeHTTP, HTTP: &HTTPConfig{URL: "https://a.example.com", Method: "POST", TimeoutSeconds: 5}},
		{ID: "b", Type: TypeHTTP, HTTP: &HTTPConfig{URL: "https://b.example.com", Method: "PUT", TimeoutSeconds: 5}},
	}

	pubs, err := BuildAll(context.Background(), DefaultRegistry(), cfgs, nil)
	require.NoError(t, err)
	require.Len(t, pubs, 2)

	pubs, err = BuildAll(context.Background(), nil, cfgs, nil)
	require.NoError(t, err)
	assert.Nil(t, pubs)
}

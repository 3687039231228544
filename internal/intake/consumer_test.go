package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"

	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/workflow"
)

type fakeSubmitter struct {
	requests []workflow.Request
	err      error
}

func (f *fakeSubmitter) Submit(_ context.Context, req workflow.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return "job-1", nil
}

func TestHandleMessageSubmitsValidRequest(t *testing.T) {
	sub := &fakeSubmitter{}
	h := NewHandler(sub, logging.NewNop())

	mark, err := h.HandleMessage(context.Background(), []byte("req-7"), []byte(`{"story":"0_2025","video":"default"}`))
	if err != nil || !mark {
		t.Fatalf("mark=%v err=%v", mark, err)
	}
	if len(sub.requests) != 1 {
		t.Fatalf("expected one submission, got %d", len(sub.requests))
	}
	got := sub.requests[0]
	if got.Story != "0_2025" || got.Video != "default" || got.Source != "kafka:req-7" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestHandleMessageSkipsBadPayloads(t *testing.T) {
	sub := &fakeSubmitter{}
	h := NewHandler(sub, logging.NewNop())

	for _, payload := range []string{`not json`, `{"title":"no body"}`} {
		mark, err := h.HandleMessage(context.Background(), nil, []byte(payload))
		if err != nil || !mark {
			t.Fatalf("payload %q: mark=%v err=%v", payload, mark, err)
		}
	}
	if len(sub.requests) != 0 {
		t.Fatalf("bad payloads must not be submitted")
	}
}

func TestHandleMessageClassifiesSubmitErrors(t *testing.T) {
	permanent := &fakeSubmitter{err: services.Wrap(services.ErrNotFound, "library", "get", "story missing", nil)}
	mark, err := NewHandler(permanent, logging.NewNop()).HandleMessage(context.Background(), nil, []byte(`{"story":"missing"}`))
	if err != nil || !mark {
		t.Fatalf("missing story should be dropped: mark=%v err=%v", mark, err)
	}

	transient := &fakeSubmitter{err: services.Wrap(services.ErrResourceExhausted, "workflow", "submit", "render queue is full", nil)}
	mark, err = NewHandler(transient, logging.NewNop()).HandleMessage(context.Background(), nil, []byte(`{"title":"t","body":"b"}`))
	if mark || !errors.Is(err, services.ErrResourceExhausted) {
		t.Fatalf("full queue should be retried: mark=%v err=%v", mark, err)
	}
}

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32                        { return nil }
func (s *fakeSession) MemberID() string                                  { return "member" }
func (s *fakeSession) GenerationID() int32                               { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)           {}
func (s *fakeSession) Commit()                                           {}
func (s *fakeSession) ResetOffset(string, int32, int64, string)          {}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) { s.marked = append(s.marked, msg.Offset) }
func (s *fakeSession) Context() context.Context                          { return s.ctx }

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "storyreel.render" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestConsumeClaimMarksHandledAndStopsOnTransientError(t *testing.T) {
	sub := &fakeSubmitter{}
	gh := &groupHandler{handler: NewHandler(sub, logging.NewNop()), logger: logging.NewNop()}
	session := &fakeSession{ctx: context.Background()}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	claim.messages <- &sarama.ConsumerMessage{Offset: 1, Value: []byte(`{"title":"a","body":"b"}`)}
	claim.messages <- &sarama.ConsumerMessage{Offset: 2, Value: []byte(`garbage`)}
	close(claim.messages)

	if err := gh.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(session.marked) != 2 || len(sub.requests) != 1 {
		t.Fatalf("marked=%v submitted=%d", session.marked, len(sub.requests))
	}

	sub.err = services.Wrap(services.ErrResourceExhausted, "workflow", "submit", "render queue is full", nil)
	session = &fakeSession{ctx: context.Background()}
	claim = &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 2)}
	claim.messages <- &sarama.ConsumerMessage{Offset: 3, Value: []byte(`{"title":"a","body":"b"}`)}
	claim.messages <- &sarama.ConsumerMessage{Offset: 4, Value: []byte(`{"title":"c","body":"d"}`)}
	close(claim.messages)

	if err := gh.ConsumeClaim(session, claim); !errors.Is(err, services.ErrResourceExhausted) {
		t.Fatalf("expected claim to stop with the submit error, got %v", err)
	}
	if len(session.marked) != 0 {
		t.Fatalf("transient failure must not be marked: %v", session.marked)
	}
}

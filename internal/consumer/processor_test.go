package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"example.com/planner/internal/cache"
	platformevents "example.com/planner/pkg/platform/events"
)

func record(offset int64, eventType, tenantID string, payload []byte) kafka.Message {
	headers := []kafka.Header{
		{Key: platformevents.HeaderEventType, Value: []byte(eventType)},
		{Key: platformevents.HeaderSchemaSubject, Value: []byte(platformevents.Routes[eventType].SchemaSubject)},
	}
	if tenantID != "" {
		headers = append(headers, kafka.Header{Key: platformevents.HeaderTenantID, Value: []byte(tenantID)})
	}
	return kafka.Message{
		Topic:     platformevents.ActivityEventsTopic,
		Partition: 0,
		Offset:    offset,
		Time:      time.Now().UTC(),
		Value:     platformevents.Frame(42, payload),
		Headers:   headers,
	}
}

func testLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t))
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	payload := []byte(`{"activity_id":"abc","tenant_id":"tenant-1"}`)
	reader := &stubReader{messages: []kafka.Message{record(10, platformevents.ActivityScheduledType, "tenant-1", payload)}}
	handler := &stubHandler{}

	before := testutil.ToFloat64(recordsTotal.WithLabelValues(platformevents.ActivityEventsTopic, platformevents.ActivityScheduledType, outcomeProcessed))

	processor := NewProcessor(reader, handler, WithLogger(testLogger(t)))
	err := processor.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, platformevents.ActivityScheduledType, handler.last.EventType)
	require.Equal(t, "tenant-1", handler.last.TenantID)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
	require.Equal(t, before+1, testutil.ToFloat64(recordsTotal.WithLabelValues(platformevents.ActivityEventsTopic, platformevents.ActivityScheduledType, outcomeProcessed)))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{record(20, platformevents.ActivityReviewedType, "tenant-2", []byte(`{}`))}}
	handler := &stubHandler{err: errors.New("boom")}

	processor := NewProcessor(reader, handler, WithLogger(testLogger(t)))
	require.ErrorIs(t, processor.Run(context.Background()), context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
}

func TestProcessorCommitsMalformedRecords(t *testing.T) {
	noHeader := record(1, platformevents.ActivityScheduledType, "t", []byte(`{}`))
	noHeader.Headers = nil
	badMagic := record(2, platformevents.ActivityScheduledType, "t", []byte(`{}`))
	badMagic.Value[0] = 9
	notJSON := record(3, platformevents.ActivityScheduledType, "t", []byte(`{oops`))
	short := record(4, platformevents.ActivityScheduledType, "t", nil)
	short.Value = []byte{0, 1}

	reader := &stubReader{messages: []kafka.Message{noHeader, badMagic, notJSON, short}}
	handler := &stubHandler{}
	before := testutil.ToFloat64(recordsTotal.WithLabelValues(platformevents.ActivityEventsTopic, unknownEventType, outcomeMalformed))

	processor := NewProcessor(reader, handler, WithLogger(testLogger(t)))
	require.ErrorIs(t, processor.Run(context.Background()), context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, 4, reader.commitCalls)
	require.Equal(t, before+4, testutil.ToFloat64(recordsTotal.WithLabelValues(platformevents.ActivityEventsTopic, unknownEventType, outcomeMalformed)))
}

func TestProcessorBacksOffOnFetchError(t *testing.T) {
	reader := &stubReader{fetchErrs: []error{errors.New("broker unavailable")}}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(testLogger(t)), WithFetchBackoff(time.Millisecond))
	require.ErrorIs(t, processor.Run(context.Background()), context.Canceled)
	require.Equal(t, 2, reader.fetchCalls)
}

// glog starts its flush daemon at init; it arrives through ristretto.
var ignoreGlog = goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon")

func TestProcessorStopsWhenContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreGlog)

	ctx, cancel := context.WithCancel(context.Background())
	reader := &blockingReader{}
	processor := NewProcessor(reader, &stubHandler{})

	done := make(chan error, 1)
	go func() { done <- processor.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestInvalidationHandler(t *testing.T) {
	ctx := context.Background()
	gens := cache.NewMemoryGenerations()
	handler := NewInvalidationHandler(cache.GenerationInvalidator{Generations: gens}, testLogger(t))

	require.NoError(t, handler.Handle(ctx, Message{EventType: platformevents.ActivityUpdatedType, TenantID: "t1"}))
	gen, _ := gens.Current(ctx, "t1")
	require.EqualValues(t, 1, gen)

	fromPayload := Message{EventType: platformevents.ActivityDeletedType, Payload: []byte(`{"activity_id":"a","tenant_id":"t2"}`)}
	require.NoError(t, handler.Handle(ctx, fromPayload))
	gen, _ = gens.Current(ctx, "t2")
	require.EqualValues(t, 1, gen)

	require.NoError(t, handler.Handle(ctx, Message{EventType: platformevents.ActivityDeletedType, Payload: []byte(`{}`)}))
	require.Error(t, handler.Handle(ctx, Message{EventType: platformevents.ActivityDeletedType, Payload: []byte(`nope`)}))
}

func TestInvalidationHandlerPropagatesFailure(t *testing.T) {
	failing := NewInvalidationHandler(failingInvalidator{}, zerolog.Nop())
	before := testutil.ToFloat64(invalidations.WithLabelValues(platformevents.ActivityReviewedType, "error"))

	err := failing.Handle(context.Background(), Message{EventType: platformevents.ActivityReviewedType, TenantID: "t1"})
	require.ErrorContains(t, err, "tenant t1")
	require.Equal(t, before+1, testutil.ToFloat64(invalidations.WithLabelValues(platformevents.ActivityReviewedType, "error")))
}

func TestChainStopsAtFirstError(t *testing.T) {
	var order []string
	step := func(name string, err error) Handler {
		return HandlerFunc(func(context.Context, Message) error {
			order = append(order, name)
			return err
		})
	}

	chain := Chain{step("persist", nil), step("invalidate", errors.New("redis down")), step("never", nil)}
	require.Error(t, chain.Handle(context.Background(), Message{}))
	require.Equal(t, []string{"persist", "invalidate"}, order)
}

func TestDecodeReportsMalformed(t *testing.T) {
	rec := record(7, platformevents.ActivityUpdatedType, "", []byte(`{"activity_id":"a"}`))
	msg, err := decode(rec)
	require.NoError(t, err)
	require.Empty(t, msg.TenantID, "tenant header is optional")
	require.Equal(t, int64(7), msg.Offset)

	rec.Value = rec.Value[:3]
	_, err = decode(rec)
	require.ErrorIs(t, err, ErrMalformed)
	require.ErrorIs(t, err, platformevents.ErrBadFrame)
}

func TestMessageEnvelope(t *testing.T) {
	env, err := Message{Payload: []byte(`{"activity_id":"a","tenant_id":"t","user_id":"u","date":"2023-06-15"}`)}.Envelope()
	require.NoError(t, err)
	require.Equal(t, platformevents.Envelope{ActivityID: "a", TenantID: "t", UserID: "u", Date: "2023-06-15"}, env)
}

type stubReader struct {
	messages    []kafka.Message
	fetchErrs   []error
	index       int
	fetchCalls  int
	commitCalls int
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	r.fetchCalls++
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

type blockingReader struct{}

func (blockingReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (blockingReader) CommitMessages(context.Context, ...kafka.Message) error { return nil }

func (blockingReader) Close() error { return nil }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}

type failingInvalidator struct{}

func (failingInvalidator) Invalidate(context.Context, string) error {
	return errors.New("redis unavailable")
}

package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	last []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.last = append([]kafka.Message{}, msgs...)
	return w.err
}

func TestProducer_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw)

	err := p.Publish(context.Background(), "t", []byte("k"), []byte("v"))
	require.NoError(t, err)
	require.Len(t, fw.last, 1)
	require.Equal(t, "t", fw.last[0].Topic)
	require.Equal(t, []byte("k"), fw.last[0].Key)
	require.Equal(t, []byte("v"), fw.last[0].Value)
}

func TestProducer_PublishErrorWrapped(t *testing.T) {
	fw := &fakeWriter{err: errors.New("boom")}
	p := newProducerWithWriter(fw)

	err := p.Publish(context.Background(), "t", nil, []byte("v"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "kafka publish")
}

type fakeReader struct {
	msgs      []kafka.Message
	fetchErr  error
	committed []kafka.Message
	i         int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.i < len(r.msgs) {
		m := r.msgs[r.i]
		r.i++
		return m, nil
	}
	if r.fetchErr != nil {
		return kafka.Message{}, r.fetchErr
	}
	return kafka.Message{}, errors.New("eof")
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_Consume_CommitsOnSuccess(t *testing.T) {
	fr := &fakeReader{
		msgs:     []kafka.Message{{Key: []byte("k"), Value: []byte("v")}},
		fetchErr: errors.New("stop"),
	}
	c := newConsumerWithReader(fr)

	var gotK, gotV []byte
	err := c.Consume(context.Background(), func(k, v []byte) error {
		gotK, gotV = k, v
		return nil
	})
	require.Error(t, err)
	require.Equal(t, []byte("k"), gotK)
	require.Equal(t, []byte("v"), gotV)
	require.Len(t, fr.committed, 1)
}

func TestConsumer_Consume_HandlerErrorSkipsCommit(t *testing.T) {
	fr := &fakeReader{msgs: []kafka.Message{{Key: []byte("k"), Value: []byte("v")}}}
	c := newConsumerWithReader(fr)

	want := errors.New("handler failed")
	err := c.Consume(context.Background(), func(k, v []byte) error { return want })
	require.ErrorIs(t, err, want)
	require.Empty(t, fr.committed)
}

func TestNewConsumer_Close(t *testing.T) {
	c := NewConsumer([]string{"localhost:0"}, "t", "g")
	require.NotNil(t, c)
	require.NoError(t, c.Close())
}

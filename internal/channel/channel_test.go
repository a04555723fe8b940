package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/task-assistant/internal/model"
)

func TestRouterDispatchesByChannel(t *testing.T) {
	r := NewRouter(zap.NewNop())

	var got []string
	r.Register(model.ChannelWhatsApp, SenderFunc(func(_ context.Context, address, text string) error {
		got = append(got, "wa:"+address+":"+text)
		return nil
	}))
	r.Register(model.ChannelEmail, SenderFunc(func(_ context.Context, address, text string) error {
		got = append(got, "mail:"+address+":"+text)
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, r.Send(ctx, model.ChannelWhatsApp, "+52", "hola"))
	require.NoError(t, r.Send(ctx, model.ChannelEmail, "a@b.c", "adios"))
	assert.Equal(t, []string{"wa:+52:hola", "mail:a@b.c:adios"}, got)
}

func TestRouterFallsBackToLog(t *testing.T) {
	r := NewRouter(zap.NewNop())
	assert.NoError(t, r.Send(context.Background(), model.Channel("sms"), "+52", "hola"))
}

func TestRouterWrapsSenderError(t *testing.T) {
	r := NewRouter(zap.NewNop())
	boom := errors.New("boom")
	r.Register(model.ChannelWhatsApp, SenderFunc(func(context.Context, string, string) error {
		return boom
	}))

	err := r.Send(context.Background(), model.ChannelWhatsApp, "+52", "hola")
	assert.ErrorIs(t, err, boom)
}

func TestConsoleSender(t *testing.T) {
	s := NewConsoleSender(1)
	ctx := context.Background()

	require.NoError(t, s.Send(ctx, "console", "uno"))
	assert.Error(t, s.Send(ctx, "console", "dos"), "queue is full")

	msg := <-s.Messages()
	assert.Equal(t, ConsoleMessage{Address: "console", Text: "uno"}, msg)
}

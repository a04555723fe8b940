// Package assistant turns inbound chat messages into task operations and
// replies.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/nhle/task-assistant/internal/channel"
	"github.com/nhle/task-assistant/internal/compose"
	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/nlp"
	"github.com/nhle/task-assistant/internal/store"
)

// Inbound is one text message received from a user.
type Inbound struct {
	Channel     model.Channel
	From        string // address on Channel
	Text        string
	ProfileName string // display name supplied by the transport, if any
	MessageID   string
}

// handlerFunc produces the reply for one interpreted message. now is in the
// user's location.
type handlerFunc func(ctx context.Context, user *model.User, res nlp.Result, now time.Time) (string, error)

// Assistant interprets messages and applies them to the store.
type Assistant struct {
	store       store.Store
	interpreter *nlp.Interpreter
	out         channel.Outbound
	clock       clockwork.Clock
	loc         *time.Location
	logger      *zap.Logger

	handlers [nlp.NumIntents]handlerFunc
}

// New creates an Assistant. loc is the timezone given to new users and
// used for users whose stored timezone cannot be loaded.
func New(
	s store.Store,
	interpreter *nlp.Interpreter,
	out channel.Outbound,
	clock clockwork.Clock,
	loc *time.Location,
	logger *zap.Logger,
) *Assistant {
	a := &Assistant{
		store:       s,
		interpreter: interpreter,
		out:         out,
		clock:       clock,
		loc:         loc,
		logger:      logger.Named("assistant"),
	}
	a.handlers = [nlp.NumIntents]handlerFunc{
		nlp.Unknown:      a.handleUnknown,
		nlp.CreateTask:   a.handleCreate,
		nlp.ListTasks:    a.handleList,
		nlp.CompleteTask: a.handleComplete,
		nlp.DeleteTask:   a.handleDelete,
		nlp.Help:         a.handleHelp,
		nlp.Greeting:     a.handleGreeting,
	}
	return a
}

// HandleMessage provisions the sender if needed, interprets the text and
// sends the reply back over the channel it arrived on. When processing
// fails an apology is sent and the error is returned.
func (a *Assistant) HandleMessage(ctx context.Context, in Inbound) error {
	if strings.TrimSpace(in.Text) == "" {
		return nil
	}

	user, err := a.provision(ctx, in)
	if err != nil {
		a.apologize(ctx, in)
		return fmt.Errorf("provisioning user %s: %w", in.From, err)
	}

	ch := in.Channel
	if ch == "" {
		ch = user.Channel
	}

	reply, err := a.Reply(ctx, user, in.Text)
	if err != nil {
		a.logger.Error("processing message",
			zap.String("user", user.ID),
			zap.String("message_id", in.MessageID),
			zap.Error(err),
		)
		a.apologize(ctx, in)
		return fmt.Errorf("handling message from %s: %w", in.From, err)
	}

	if err := a.out.Send(ctx, ch, in.From, reply); err != nil {
		return fmt.Errorf("replying to %s: %w", in.From, err)
	}
	return nil
}

// Reply interprets text on behalf of user and returns the response.
func (a *Assistant) Reply(ctx context.Context, user *model.User, text string) (string, error) {
	now := a.clock.Now().In(user.Location(a.loc))
	res := a.interpreter.Interpret(text, now)

	a.logger.Debug("interpreted",
		zap.String("user", user.ID),
		zap.Stringer("intent", res.Intent),
		zap.Float64("confidence", res.Confidence),
	)

	h := a.handlers[res.Intent]
	if h == nil {
		h = a.handleUnknown
	}
	return h(ctx, user, res, now)
}

func (a *Assistant) provision(ctx context.Context, in Inbound) (*model.User, error) {
	user, err := a.store.GetUserByAddress(ctx, in.From)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(in.ProfileName)
	if name == "" {
		name = model.DefaultUserName
	}
	ch := in.Channel
	if ch == "" {
		ch = model.ChannelWhatsApp
	}

	user, createErr := a.store.CreateUser(ctx, model.User{
		Name:      name,
		Address:   in.From,
		Channel:   ch,
		Timezone:  a.loc.String(),
		Active:    true,
		CreatedAt: a.clock.Now(),
	})
	if createErr != nil {
		// Another message from the same sender may have created it first.
		if user, err := a.store.GetUserByAddress(ctx, in.From); err == nil {
			return user, nil
		}
		return nil, createErr
	}

	a.logger.Info("user provisioned",
		zap.String("user", user.ID),
		zap.String("channel", string(user.Channel)),
	)
	return user, nil
}

func (a *Assistant) apologize(ctx context.Context, in Inbound) {
	ch := in.Channel
	if ch == "" {
		ch = model.ChannelWhatsApp
	}
	if err := a.out.Send(ctx, ch, in.From, compose.Apology()); err != nil {
		a.logger.Warn("sending apology", zap.String("to", in.From), zap.Error(err))
	}
}

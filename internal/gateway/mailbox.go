package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/nhle/task-assistant/internal/assistant"
	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/scheduler"
)

// JobMailbox is the scheduler job name of the mailbox poll.
const JobMailbox = "mailbox"

// IMAPConfig holds the IMAP server settings of the inbound mailbox.
type IMAPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
	Mailbox  string
	Batch    int
}

// Mailbox polls an IMAP folder for unread mail and treats each message as
// a chat command from its sender.
type Mailbox struct {
	cfg     IMAPConfig
	handler MessageHandler
	logger  *zap.Logger
}

// NewMailbox creates a Mailbox.
func NewMailbox(cfg IMAPConfig, h MessageHandler, logger *zap.Logger) *Mailbox {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 20
	}
	return &Mailbox{cfg: cfg, handler: h, logger: logger.Named("mailbox")}
}

// connect establishes a connection to the IMAP server and authenticates.
// The caller is responsible for calling Logout on the returned client.
func (m *Mailbox) connect() (*imapclient.Client, error) {
	addr := m.cfg.Host + ":" + m.cfg.Port

	var (
		client *imapclient.Client
		err    error
	)
	if m.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(m.cfg.Username, m.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", m.cfg.Username, err)
	}
	return client, nil
}

// Poll handles every unseen message in the mailbox and marks the handled
// ones Seen. It returns how many were handled.
func (m *Mailbox) Poll(ctx context.Context) (int, error) {
	client, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(m.cfg.Mailbox, nil).Wait(); err != nil {
		return 0, fmt.Errorf("selecting %s: %w", m.cfg.Mailbox, err)
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return 0, fmt.Errorf("searching unseen messages: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return 0, nil
	}
	if len(uids) > m.cfg.Batch {
		uids = uids[:m.cfg.Batch]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})

	var inbound []mailMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			m.logger.Warn("collecting message", zap.Error(err))
			continue
		}
		if mm, ok := messageFromBuffer(buf, bodySection); ok {
			inbound = append(inbound, mm)
		}
	}
	if err := fetchCmd.Close(); err != nil {
		return 0, fmt.Errorf("fetching messages: %w", err)
	}

	var handled []imap.UID
	for _, mm := range inbound {
		if err := m.handler.HandleMessage(ctx, mm.Inbound); err != nil {
			m.logger.Error("handling mail command",
				zap.String("from", mm.From),
				zap.Uint32("uid", uint32(mm.UID)),
				zap.Error(err),
			)
		}
		// Failed commands were answered with an apology; retrying them
		// on every poll would repeat it.
		handled = append(handled, mm.UID)
	}
	if len(handled) == 0 {
		return 0, nil
	}

	storeCmd := client.Store(imap.UIDSetNum(handled...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return len(handled), fmt.Errorf("marking messages seen: %w", err)
	}
	return len(handled), nil
}

// Job returns the poll as a scheduler job.
func (m *Mailbox) Job(interval time.Duration) scheduler.Job {
	return scheduler.Job{Name: JobMailbox, Interval: interval, Run: func(ctx context.Context) error {
		_, err := m.Poll(ctx)
		return err
	}}
}

type mailMessage struct {
	assistant.Inbound
	UID imap.UID
}

// messageFromBuffer turns a fetched message into an inbound command.
// Messages without a sender or any text are skipped.
func messageFromBuffer(buf *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) (mailMessage, bool) {
	mm := mailMessage{UID: buf.UID}
	mm.Channel = model.ChannelEmail

	var subject string
	if env := buf.Envelope; env != nil {
		subject = env.Subject
		mm.MessageID = env.MessageID
		if len(env.From) > 0 {
			mm.From = env.From[0].Addr()
			mm.ProfileName = env.From[0].Name
		}
	}
	if mm.From == "" {
		return mm, false
	}

	var body string
	if raw := buf.FindBodySection(section); raw != nil {
		body = plainText(raw)
	}
	mm.Text = commandText(subject, body)
	return mm, mm.Text != ""
}

// plainText returns the text/plain part of a raw RFC 5322 message.
func plainText(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if contentType != "" && !strings.HasPrefix(contentType, "text/plain") {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return ""
		}
		return string(body)
	}
}

// commandText picks the command out of a mail: the first line of the body
// that is neither blank nor quoted, stopping at a signature. An empty body
// falls back to the subject.
func commandText(subject, body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "--" {
			break
		}
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}
		return line
	}

	subject = strings.TrimSpace(subject)
	for _, prefix := range []string{"Re:", "RE:", "Fwd:", "FW:"} {
		subject = strings.TrimSpace(strings.TrimPrefix(subject, prefix))
	}
	return subject
}

// Package setup is the interactive first-run wizard that writes the
// configuration file and stores channel secrets in the keyring.
package setup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/nhle/task-assistant/internal/config"
	"github.com/nhle/task-assistant/internal/credential"
)

// Values holds the wizard's answers. Secrets are plain text here and move
// to the keyring on Apply.
type Values struct {
	Timezone   string
	DigestTime string

	WhatsAppPhoneID string
	WhatsAppToken   string
	WhatsAppVerify  string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	EnableIMAP   bool
	IMAPHost     string
	IMAPPort     string
	IMAPPassword string
}

// FromConfig pre-fills the wizard from an existing configuration. Secrets
// are left empty so an unchanged field keeps the stored one.
func FromConfig(cfg *config.Config) Values {
	return Values{
		Timezone:        cfg.Timezone,
		DigestTime:      cfg.Scheduler.DigestTime,
		WhatsAppPhoneID: cfg.WhatsApp.PhoneNumberID,
		SMTPHost:        cfg.Email.SMTP.Host,
		SMTPPort:        cfg.Email.SMTP.Port,
		SMTPUsername:    cfg.Email.SMTP.Username,
		SMTPFrom:        cfg.Email.SMTP.From,
		EnableIMAP:      cfg.Email.IMAP.Host != "",
		IMAPHost:        cfg.Email.IMAP.Host,
		IMAPPort:        cfg.Email.IMAP.Port,
	}
}

// Form builds the wizard bound to v.
func Form(v *Values) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Zona horaria").
				Description("Zona IANA usada para interpretar fechas").
				Placeholder("America/Mexico_City").
				Value(&v.Timezone).
				Validate(validateTimezone),
			huh.NewInput().
				Title("Resumen diario").
				Description("Hora local del resumen, HH:MM").
				Placeholder("08:00").
				Value(&v.DigestTime).
				Validate(validateClock),
		).Title("General"),
		huh.NewGroup(
			huh.NewInput().
				Title("Phone number ID").
				Description("Déjalo vacío para desactivar WhatsApp").
				Value(&v.WhatsAppPhoneID),
			huh.NewInput().
				Title("Access token").
				EchoMode(huh.EchoModePassword).
				Value(&v.WhatsAppToken),
			huh.NewInput().
				Title("Verify token").
				Description("Token del webhook de verificación").
				EchoMode(huh.EchoModePassword).
				Value(&v.WhatsAppVerify),
		).Title("WhatsApp"),
		huh.NewGroup(
			huh.NewInput().
				Title("SMTP host").
				Description("Déjalo vacío para desactivar el correo").
				Placeholder("smtp.example.com").
				Value(&v.SMTPHost),
			huh.NewInput().
				Title("SMTP port").
				Placeholder("587").
				Value(&v.SMTPPort).
				Validate(validateOptionalPort),
			huh.NewInput().
				Title("Usuario").
				Placeholder("asistente@example.com").
				Value(&v.SMTPUsername),
			huh.NewInput().
				Title("Contraseña").
				EchoMode(huh.EchoModePassword).
				Value(&v.SMTPPassword),
			huh.NewInput().
				Title("Remitente").
				Placeholder("Asistente <asistente@example.com>").
				Value(&v.SMTPFrom),
			huh.NewConfirm().
				Title("Leer comandos por IMAP").
				Affirmative("Sí").
				Negative("No").
				Value(&v.EnableIMAP),
		).Title("Correo"),
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP host").
				Placeholder("imap.example.com").
				Value(&v.IMAPHost),
			huh.NewInput().
				Title("IMAP port").
				Placeholder("993").
				Value(&v.IMAPPort).
				Validate(validateOptionalPort),
			huh.NewInput().
				Title("Contraseña IMAP").
				Description("Vacío usa la contraseña SMTP").
				EchoMode(huh.EchoModePassword).
				Value(&v.IMAPPassword),
		).Title("IMAP").WithHideFunc(func() bool { return !v.EnableIMAP }),
	).WithWidth(72)
}

// Apply copies v into cfg. Non-empty secrets are handed to storeSecret and
// referenced from the config as keyring entries.
func Apply(cfg *config.Config, v Values, storeSecret func(name, value string) error) error {
	cfg.Timezone = strings.TrimSpace(v.Timezone)
	if d := strings.TrimSpace(v.DigestTime); d != "" {
		cfg.Scheduler.DigestTime = d
	}

	cfg.WhatsApp.PhoneNumberID = strings.TrimSpace(v.WhatsAppPhoneID)
	cfg.Email.SMTP.Host = strings.TrimSpace(v.SMTPHost)
	cfg.Email.SMTP.Port = strings.TrimSpace(v.SMTPPort)
	cfg.Email.SMTP.Username = strings.TrimSpace(v.SMTPUsername)
	cfg.Email.SMTP.From = strings.TrimSpace(v.SMTPFrom)

	if v.EnableIMAP {
		cfg.Email.IMAP.Host = strings.TrimSpace(v.IMAPHost)
		cfg.Email.IMAP.Port = strings.TrimSpace(v.IMAPPort)
		cfg.Email.IMAP.Username = cfg.Email.SMTP.Username
	} else {
		cfg.Email.IMAP.Host = ""
	}

	imapPassword := v.IMAPPassword
	if imapPassword == "" && v.EnableIMAP {
		imapPassword = v.SMTPPassword
	}

	secrets := []struct {
		name  string
		value string
		dst   *string
	}{
		{credential.WhatsAppToken, v.WhatsAppToken, &cfg.WhatsApp.AccessToken},
		{credential.WhatsAppVerify, v.WhatsAppVerify, &cfg.WhatsApp.VerifyToken},
		{credential.SMTPPassword, v.SMTPPassword, &cfg.Email.SMTP.Password},
		{credential.IMAPPassword, imapPassword, &cfg.Email.IMAP.Password},
	}
	for _, s := range secrets {
		if s.value == "" {
			continue
		}
		if err := storeSecret(s.name, s.value); err != nil {
			return fmt.Errorf("storing %s: %w", s.name, err)
		}
		*s.dst = config.SecretPrefix + s.name
	}

	return cfg.Validate()
}

// Forget removes every keyring-backed secret referenced by cfg and clears
// the references. Secrets already missing from the keyring are ignored.
func Forget(cfg *config.Config, deleteSecret func(name string) error) error {
	refs := []*string{
		&cfg.WhatsApp.AccessToken,
		&cfg.WhatsApp.VerifyToken,
		&cfg.Email.SMTP.Password,
		&cfg.Email.IMAP.Password,
	}
	for _, ref := range refs {
		name, ok := strings.CutPrefix(*ref, config.SecretPrefix)
		if !ok {
			continue
		}
		if err := deleteSecret(name); err != nil && !errors.Is(err, credential.ErrNotFound) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
		*ref = ""
	}
	return nil
}

func validateTimezone(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("la zona horaria es obligatoria")
	}
	if _, err := time.LoadLocation(s); err != nil {
		return fmt.Errorf("zona horaria desconocida: %s", s)
	}
	return nil
}

func validateClock(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, _, err := config.ParseClock(s); err != nil {
		return fmt.Errorf("usa el formato HH:MM")
	}
	return nil
}

func validateOptionalPort(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("puerto inválido: %s", s)
	}
	return nil
}

package config

import "github.com/spf13/viper"

// MailConfig configures the SMTP relay used for password reset emails.
// With an empty Host the application logs reset links instead of
// sending them, which is what development setups usually want.
type MailConfig struct {
	Host     string `mapstructure:"SMTP_HOST"`
	Port     int    `mapstructure:"SMTP_PORT"`
	Username string `mapstructure:"SMTP_USER"`
	Password string `mapstructure:"SMTP_PASS"`
	From     string `mapstructure:"EMAIL_FROM"`
	Clinic   string `mapstructure:"CLINIC_NAME"`
}

var mailKeys = []string{"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "EMAIL_FROM", "CLINIC_NAME"}

func setMailDefaults(v *viper.Viper) {
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("CLINIC_NAME", "Clínica San José")
}

// Enabled reports whether an SMTP relay is configured.
func (m MailConfig) Enabled() bool { return m.Host != "" }

// Sender returns the From address, falling back to the SMTP username.
func (m MailConfig) Sender() string {
	if m.From != "" {
		return m.From
	}
	return m.Username
}

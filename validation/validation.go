package validation

import (
	"net/url"
	"regexp"
	"strings"

	"clipflow/config"
	"clipflow/errors"
)

var pinPattern = regexp.MustCompile(`^\d{4,8}$`)

type Validator struct {
	config *config.Config
}

func NewValidator(cfg *config.Config) *Validator {
	return &Validator{config: cfg}
}

// ValidateChannelURL checks that a source channel URL is a YouTube channel,
// handle, or custom URL.
func (v *Validator) ValidateChannelURL(urlStr string) error {
	const op = "Validator.ValidateChannelURL"

	if urlStr == "" {
		return errors.InvalidInput(op, nil, "Channel URL is required")
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return errors.InvalidInput(op, err, "Invalid URL format")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.InvalidInput(op, nil, "URL must use HTTP or HTTPS")
	}

	host := parsedURL.Hostname()
	if !strings.Contains(host, "youtube.com") && !strings.Contains(host, "youtu.be") {
		return errors.InvalidInput(op, nil, "Only YouTube channel URLs are supported")
	}

	return nil
}

// ValidatePin checks the PIN shape before attempting a login.
func (v *Validator) ValidatePin(pin string) error {
	const op = "Validator.ValidatePin"

	if pin == "" {
		return errors.InvalidInput(op, nil, "PIN is required")
	}
	if !pinPattern.MatchString(pin) {
		return errors.InvalidInput(op, nil, "PIN must be 4-8 digits")
	}
	return nil
}

// ExtractChannelID pulls the channel id out of a /channel/UC... URL. Returns
// an empty string for handle-style URLs, which need an API lookup instead.
func ExtractChannelID(channelURL string) string {
	parsedURL, err := url.Parse(channelURL)
	if err != nil {
		return ""
	}

	parts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
	for i, part := range parts {
		if part == "channel" && i+1 < len(parts) && strings.HasPrefix(parts[i+1], "UC") {
			return parts[i+1]
		}
	}
	return ""
}

// ExtractHandle pulls the @handle out of a handle-style channel URL.
func ExtractHandle(channelURL string) string {
	idx := strings.Index(channelURL, "@")
	if idx == -1 {
		return ""
	}
	handle := channelURL[idx+1:]
	if slash := strings.Index(handle, "/"); slash != -1 {
		handle = handle[:slash]
	}
	if handle == "" {
		return ""
	}
	return "@" + handle
}

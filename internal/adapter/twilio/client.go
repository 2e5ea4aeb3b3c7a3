package twilio

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/storm-sos-dispatch/internal/config"
	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
)

// DefaultBaseURL is the Twilio REST API root.
const DefaultBaseURL = "https://api.twilio.com/2010-04-01"

// Twilio error codes that mean the destination number will never accept the message.
var recipientRejectedCodes = map[int]bool{
	21211: true, // invalid 'To' number
	21608: true, // unverified number on a trial account
	21610: true, // recipient unsubscribed
	21614: true, // not a mobile number
}

const codeAuthenticate = 20003

// Channel implements dispatch.Channel for a single Twilio account.
type Channel struct {
	name       string
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewChannel creates a Twilio channel for one account. An empty baseURL uses DefaultBaseURL.
func NewChannel(cred config.ChannelCredential, baseURL string, timeout time.Duration, logger *slog.Logger) *Channel {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Channel{
		name:       cred.Name,
		accountSID: cred.AccountSID,
		authToken:  cred.AuthToken,
		from:       cred.From,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Name returns the account name, e.g. "primary".
func (c *Channel) Name() string {
	return c.name
}

// SendText creates an SMS through the Messages resource.
func (c *Channel) SendText(ctx context.Context, to domain.Recipient, body string) error {
	form := url.Values{
		"To":   {string(to)},
		"From": {c.from},
		"Body": {body},
	}
	sid, err := c.post(ctx, "Messages.json", form)
	if err != nil {
		return err
	}
	c.logger.Debug("sms queued", "channel", c.name, "recipient", to.Masked(), "sid", sid)
	return nil
}

// SendVoice places a call that reads speech aloud using inline TwiML.
func (c *Channel) SendVoice(ctx context.Context, to domain.Recipient, speech, language string) error {
	twiml, err := sayTwiML(speech, language)
	if err != nil {
		return c.fail(domain.ErrChannelTransport, fmt.Errorf("build twiml: %w", err))
	}
	form := url.Values{
		"To":    {string(to)},
		"From":  {c.from},
		"Twiml": {twiml},
	}
	sid, err := c.post(ctx, "Calls.json", form)
	if err != nil {
		return err
	}
	c.logger.Debug("call queued", "channel", c.name, "recipient", to.Masked(), "sid", sid)
	return nil
}

func (c *Channel) post(ctx context.Context, path string, form url.Values) (string, error) {
	u := fmt.Sprintf("%s/Accounts/%s/%s", c.baseURL, url.PathEscape(c.accountSID), path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return "", c.fail(domain.ErrChannelTransport, fmt.Errorf("create request: %w", err))
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.fail(domain.ErrChannelTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", c.fail(domain.ErrChannelTransport, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.classify(resp.StatusCode, body)
	}

	var created resource
	if err := json.Unmarshal(body, &created); err != nil {
		return "", c.fail(domain.ErrChannelTransport, fmt.Errorf("decode response: %w", err))
	}
	return created.SID, nil
}

// classify maps a non-2xx response onto a channel failure kind.
func (c *Channel) classify(status int, body []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	detail := fmt.Errorf("HTTP %d: %s (code %d)", status, apiErr.Message, apiErr.Code)
	if apiErr.Message == "" {
		detail = fmt.Errorf("HTTP %d", status)
	}

	switch {
	case status == http.StatusUnauthorized, apiErr.Code == codeAuthenticate:
		return c.fail(domain.ErrChannelAuth, detail)
	case recipientRejectedCodes[apiErr.Code]:
		return c.fail(domain.ErrChannelRecipientRejected, detail)
	default:
		return c.fail(domain.ErrChannelTransport, detail)
	}
}

func (c *Channel) fail(kind, err error) error {
	return &domain.ChannelError{Channel: c.name, Kind: kind, Err: err}
}

// sayTwiML renders a <Response><Say> document with speech escaped as XML text.
func sayTwiML(speech, language string) (string, error) {
	var b strings.Builder
	b.WriteString("<Response><Say")
	if language != "" {
		b.WriteString(` language="`)
		if err := xml.EscapeText(&b, []byte(language)); err != nil {
			return "", err
		}
		b.WriteString(`"`)
	}
	b.WriteString(">")
	if err := xml.EscapeText(&b, []byte(speech)); err != nil {
		return "", err
	}
	b.WriteString("</Say></Response>")
	return b.String(), nil
}

// Twilio API response types.

type resource struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

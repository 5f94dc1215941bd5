package twilio

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"
)

// Client places outbound calls through the Twilio REST API.
type Client struct {
    AccountSID  string
    AuthToken   string
    FromNumber  string
    CallbackURL string
    HTTPClient  *http.Client
    BaseURL     string
}

func NewClient(accountSID, authToken, fromNumber, callbackURL string) *Client {
    return &Client{
        AccountSID:  accountSID,
        AuthToken:   authToken,
        FromNumber:  fromNumber,
        CallbackURL: callbackURL,
        HTTPClient:  &http.Client{Timeout: 15 * time.Second},
        BaseURL:     "https://api.twilio.com",
    }
}

// PlaceCall initiates a call to the given number. Twilio will fetch the
// voice prompt from /voice and report the final status to /status.
// A timeout counts as a placement failure; the caller skips the recipient.
func (c *Client) PlaceCall(ctx context.Context, to string) (string, error) {
    form := url.Values{}
    form.Set("To", to)
    form.Set("From", c.FromNumber)
    form.Set("Url", c.CallbackURL+"/voice")
    form.Set("StatusCallback", c.CallbackURL+"/status")
    form.Set("StatusCallbackEvent", "completed")
    form.Set("StatusCallbackMethod", "POST")

    endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.BaseURL, c.AccountSID)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
    if err != nil {
        return "", err
    }
    req.SetBasicAuth(c.AccountSID, c.AuthToken)
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

    resp, err := c.HTTPClient.Do(req)
    if err != nil {
        return "", err
    }
    defer resp.Body.Close()

    if resp.StatusCode >= 300 {
        body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
        return "", fmt.Errorf("twilio returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
    }

    var out struct {
        Sid string `json:"sid"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
        return "", fmt.Errorf("decoding twilio response: %w", err)
    }
    return out.Sid, nil
}

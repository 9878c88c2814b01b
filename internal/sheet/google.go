package sheet

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tintero.dev/escriba/internal/globaltime"
)

const (
	defaultSheetsEndpoint = "https://sheets.googleapis.com/v4/spreadsheets"
	defaultTokenURI       = "https://oauth2.googleapis.com/token"
	sheetsScope           = "https://www.googleapis.com/auth/spreadsheets"
	readRange             = "A:Z"
)

// GoogleSource reads and writes a spreadsheet through the Google Sheets v4
// REST API, authenticating as a service account.
type GoogleSource struct {
	spreadsheetID string
	endpoint      string
	client        *http.Client
	logger        zerolog.Logger

	credentials googleCredentials
	signingKey  *rsa.PrivateKey

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type googleCredentials struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// NewGoogleSource builds a source from a service-account credentials JSON
// document (the raw content of the key file).
func NewGoogleSource(spreadsheetID, credentialsJSON string, logger zerolog.Logger) (*GoogleSource, error) {
	id := strings.TrimSpace(spreadsheetID)
	if id == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	var creds googleCredentials
	if err := json.Unmarshal([]byte(credentialsJSON), &creds); err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	if strings.TrimSpace(creds.ClientEmail) == "" {
		return nil, fmt.Errorf("google credentials missing client_email")
	}
	if strings.TrimSpace(creds.TokenURI) == "" {
		creds.TokenURI = defaultTokenURI
	}

	key, err := parsePrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse google private key: %w", err)
	}

	return &GoogleSource{
		spreadsheetID: id,
		endpoint:      defaultSheetsEndpoint,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:      logger,
		credentials: creds,
		signingKey:  key,
	}, nil
}

func (s *GoogleSource) Values(ctx context.Context, sheetName string) ([][]string, error) {
	rangeName := fmt.Sprintf("%s!%s", sheetName, readRange)
	endpoint := fmt.Sprintf("%s/%s/values/%s", s.endpoint, s.spreadsheetID, url.PathEscape(rangeName))

	body, err := s.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", rangeName, err)
	}

	var parsed valuesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode values response: %w", err)
	}

	rows := make([][]string, 0, len(parsed.Values))
	for _, raw := range parsed.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, cellString(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *GoogleSource) Write(ctx context.Context, writes []CellWrite) error {
	if len(writes) == 0 {
		return nil
	}

	if len(writes) == 1 {
		w := writes[0]
		rangeName := fmt.Sprintf("%s!%s", w.Sheet, w.Ref)
		endpoint := fmt.Sprintf("%s/%s/values/%s?valueInputOption=RAW", s.endpoint, s.spreadsheetID, url.PathEscape(rangeName))
		if _, err := s.doRequest(ctx, http.MethodPut, endpoint, valuesBody{Values: [][]string{{w.Value}}}); err != nil {
			return fmt.Errorf("update range %s: %w", rangeName, err)
		}
		return nil
	}

	data := make([]valueRange, 0, len(writes))
	for _, w := range writes {
		data = append(data, valueRange{
			Range:  fmt.Sprintf("%s!%s", w.Sheet, w.Ref),
			Values: [][]string{{w.Value}},
		})
	}
	endpoint := fmt.Sprintf("%s/%s/values:batchUpdate", s.endpoint, s.spreadsheetID)
	if _, err := s.doRequest(ctx, http.MethodPost, endpoint, batchUpdateBody{ValueInputOption: "RAW", Data: data}); err != nil {
		return fmt.Errorf("batch update %d ranges: %w", len(data), err)
	}
	return nil
}

func (s *GoogleSource) Append(ctx context.Context, sheetName string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	rangeName := fmt.Sprintf("%s!%s", sheetName, readRange)
	endpoint := fmt.Sprintf(
		"%s/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		s.endpoint,
		s.spreadsheetID,
		url.PathEscape(rangeName),
	)
	if _, err := s.doRequest(ctx, http.MethodPost, endpoint, valuesBody{Values: rows}); err != nil {
		return fmt.Errorf("append %d rows to %s: %w", len(rows), sheetName, err)
	}
	return nil
}

func (s *GoogleSource) doRequest(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal sheets request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build sheets request: %w", err)
	}
	token, err := s.bearerToken(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send sheets request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sheets response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errPayload googleErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errPayload); unmarshalErr == nil {
			if msg := strings.TrimSpace(errPayload.Error.Message); msg != "" {
				return nil, fmt.Errorf("sheets api status %d: %s", resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("sheets api status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return respBody, nil
}

// bearerToken returns a cached access token, exchanging a fresh signed JWT
// assertion when the cache is empty or about to expire.
func (s *GoogleSource) bearerToken(ctx context.Context) (string, error) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	now := globaltime.Now()
	if s.accessToken != "" && now.Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	assertion, err := s.signAssertion(now)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.credentials.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send token request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if strings.TrimSpace(parsed.AccessToken) == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	expiresIn := parsed.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	s.accessToken = parsed.AccessToken
	s.tokenExpiry = now.Add(time.Duration(expiresIn)*time.Second - time.Minute)
	s.logger.Debug().Str("client_email", s.credentials.ClientEmail).Time("expires", s.tokenExpiry).Msg("sheets access token refreshed")

	return s.accessToken, nil
}

func (s *GoogleSource) signAssertion(now time.Time) (string, error) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	claims, err := json.Marshal(map[string]any{
		"iss":   s.credentials.ClientEmail,
		"scope": sheetsScope,
		"aud":   s.credentials.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal jwt claims: %w", err)
	}

	signingInput := header + "." + base64.RawURLEncoding.EncodeToString(claims)
	digest := sha256.Sum256([]byte(signingInput))
	signature, err := rsa.SignPKCS1v15(rand.Reader, s.signingKey, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign jwt assertion: %w", err)
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(signature), nil
}

func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not RSA")
		}
		return key, nil
	}

	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

type valuesResponse struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

type valuesBody struct {
	Values [][]string `json:"values"`
}

type valueRange struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

type batchUpdateBody struct {
	ValueInputOption string       `json:"valueInputOption"`
	Data             []valueRange `json:"data"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

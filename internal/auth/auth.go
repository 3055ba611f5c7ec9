// Package auth exchanges Webcandy credentials for the API token used in the
// session handshake.
package auth

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// requestTimeout bounds the token request.
const requestTimeout = 10 * time.Second

// Login posts the credentials to baseURL's token endpoint and returns the
// bearer token. With insecure set, TLS verification is skipped so
// development servers with self-signed certificates work.
func Login(baseURL, username, password string, insecure bool) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: requestTimeout}
	if insecure {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	url := strings.TrimSuffix(baseURL, "/") + "/api/token"
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to reach the Webcandy API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("malformed token response: %w", err)
	}
	if result.Token == "" {
		return "", errors.New("token response held no token")
	}
	return result.Token, nil
}

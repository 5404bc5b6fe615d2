// Package main provides a CI-friendly HTTP smoke test for a running carapi.
//
// It validates:
//   - probes (/healthz, /readyz)
//   - register -> authenticate round trip, and uniform rejection of a bad password
//   - the bearer gate on /last-messages
//   - car create -> soft delete -> hidden from list -> still updatable
//   - send message -> visible as the sender's latest
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type smokeClient struct {
	base    string
	http    *http.Client
	timeout time.Duration
	verbose bool
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "carapi base URL")
		password = flag.String("password", "smoke-pass-1", "Password for the throwaway users")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{},
		timeout: *timeout,
		verbose: *verbose,
	}

	c.mustStatus(http.MethodGet, "/healthz", "", "", http.StatusOK)
	c.mustStatus(http.MethodGet, "/readyz", "", "", http.StatusOK)

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	alice := "smoke-a-" + suffix
	bob := "smoke-b-" + suffix

	aliceID, _ := c.mustRegister(alice, *password)
	_, bobJWT := c.mustRegister(bob, *password)

	aliceJWT := c.mustAuthenticate(alice, *password)
	env := c.mustStatus(http.MethodPost, "/authenticate", credentials(alice, *password+"x"), "", http.StatusUnauthorized)
	mustCode(env, "invalid_credentials")

	env = c.mustStatus(http.MethodGet, "/last-messages", "", "", http.StatusUnauthorized)
	mustCode(env, "missing_authorization")

	carID := c.mustCarLifecycle(aliceJWT)

	c.mustStatus(http.MethodPost, "/messages", mustJSON(map[string]string{"to_user_id": aliceID, "body": "smoke " + suffix}), bobJWT, http.StatusCreated)
	env = c.mustStatus(http.MethodGet, "/last-messages", "", aliceJWT, http.StatusOK)
	if !bytes.Contains(env.Data, []byte("smoke "+suffix)) {
		fatalf("last-messages missing the sent message: %s", env.Data)
	}

	fmt.Printf("OK: users=%s,%s car=%s\n", alice, bob, carID)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func credentials(username, password string) string {
	return mustJSON(map[string]string{"username": username, "password": password})
}

func (c *smokeClient) mustRegister(username, password string) (id, jwt string) {
	env := c.mustStatus(http.MethodPost, "/register", credentials(username, password), "", http.StatusCreated)

	var data struct {
		JWT  string `json:"jwt"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	mustUnmarshal(env.Data, &data)
	if data.JWT == "" || data.User.ID == "" {
		fatalf("register %s: missing jwt or user id", username)
	}
	if bytes.Contains(env.Data, []byte(password)) {
		fatalf("register %s: response echoes the password", username)
	}
	return data.User.ID, data.JWT
}

func (c *smokeClient) mustAuthenticate(username, password string) string {
	env := c.mustStatus(http.MethodPost, "/authenticate", credentials(username, password), "", http.StatusOK)

	var data struct {
		JWT string `json:"jwt"`
	}
	mustUnmarshal(env.Data, &data)
	if data.JWT == "" {
		fatalf("authenticate %s: missing jwt", username)
	}
	return data.JWT
}

// mustCarLifecycle sends a token so it also passes when CARAPI_PROTECT_CARS is on.
func (c *smokeClient) mustCarLifecycle(jwt string) string {
	env := c.mustStatus(http.MethodPost, "/cars", `{"make":"Honda","model":"Civic","year":2020}`, jwt, http.StatusCreated)
	var car struct {
		ID          string `json:"id"`
		DeletedFlag bool   `json:"deleted_flag"`
	}
	mustUnmarshal(env.Data, &car)
	if car.ID == "" || car.DeletedFlag {
		fatalf("create car: unexpected payload %s", env.Data)
	}

	c.mustStatus(http.MethodDelete, "/cars/"+car.ID, "", jwt, http.StatusOK)
	c.mustStatus(http.MethodDelete, "/cars/"+car.ID, "", jwt, http.StatusOK)

	env = c.mustStatus(http.MethodGet, "/cars", "", jwt, http.StatusOK)
	if bytes.Contains(env.Data, []byte(car.ID)) {
		fatalf("soft-deleted car %s still listed", car.ID)
	}

	env = c.mustStatus(http.MethodPut, "/cars/"+car.ID, `{"make":"Honda","model":"Civic","year":2021}`, jwt, http.StatusOK)
	mustUnmarshal(env.Data, &car)
	if !car.DeletedFlag {
		fatalf("update revived soft-deleted car %s", car.ID)
	}
	return car.ID
}

func (c *smokeClient) mustStatus(method, path, body, bearer string, want int) envelope {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fatalf("%s %s: read body: %v", method, path, err)
	}
	if c.verbose {
		fmt.Printf("%s %s -> %d %s\n", method, path, resp.StatusCode, raw)
	}
	if resp.StatusCode != want {
		fatalf("%s %s: status=%d want=%d body=%s", method, path, resp.StatusCode, want, raw)
	}

	var env envelope
	mustUnmarshal(raw, &env)
	if env.Success != (want < 400) {
		fatalf("%s %s: success=%t does not match status %d", method, path, env.Success, resp.StatusCode)
	}
	return env
}

func mustCode(env envelope, want string) {
	if env.Code != want {
		fatalf("code=%q want=%q", env.Code, want)
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		fatalf("marshal: %v", err)
	}
	return string(b)
}

func mustUnmarshal(raw []byte, dst any) {
	if err := json.Unmarshal(raw, dst); err != nil {
		fatalf("unmarshal %s: %v", raw, err)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}

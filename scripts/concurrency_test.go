//go:build ignore
// +build ignore

// Package main is a manual concurrency stress test for the borrow endpoint.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_id> <email:password> [email:password ...]
//
// Or with environment variables:
//
//	BOOK_ID=<uuid>  USERS=a@x.com:pw,b@x.com:pw  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Logs every user in to obtain a bearer token.
//  2. Fires one POST /api/borrow per user for the same book, all at once.
//  3. Prints how many borrows succeeded. Exactly one must win; everyone else
//     gets 400 "Book is not available".
//
// Prerequisites:
//   - Server must be running with migrated schema.
//   - The book must exist and be available; the users must be verified non-admins.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	Email      string
	StatusCode int
	Message    string
	Err        error
}

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	serverAddr := os.Getenv("SERVER_URL")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	var users []string
	if env := os.Getenv("USERS"); env != "" {
		users = strings.Split(env, ",")
	}
	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		users = args[1:]
	}

	if bookID == "" || len(users) == 0 {
		log.Fatal("Usage: BOOK_ID=<uuid> USERS=<email:pw,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> <email:pw> [email:pw ...]")
	}

	fmt.Printf("=== Borrow Concurrency Test ===\n")
	fmt.Printf("Server : %s\n", serverAddr)
	fmt.Printf("Book   : %s\n", bookID)
	fmt.Printf("Users  : %d\n\n", len(users))

	emails := make([]string, len(users))
	tokens := make([]string, len(users))
	for i, u := range users {
		email, password, ok := strings.Cut(strings.TrimSpace(u), ":")
		if !ok {
			log.Fatalf("user %q must be email:password", u)
		}
		token, err := login(serverAddr, email, password)
		if err != nil {
			log.Fatalf("login %s: %v", email, err)
		}
		emails[i], tokens[i] = email, token
	}

	results := make([]borrowResult, len(users))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range tokens {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx] = attemptBorrow(serverAddr, bookID, emails[idx], tokens[idx])
		}(i)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var borrowed, rejected, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] user=%-32s err=%v\n", r.Email, r.Err)
		case r.StatusCode == http.StatusOK:
			borrowed++
			fmt.Printf("  [OK  ] user=%-32s %s\n", r.Email, r.Message)
		case r.StatusCode == http.StatusBadRequest:
			rejected++
			fmt.Printf("  [BUSY] user=%-32s %s\n", r.Email, r.Message)
		default:
			failures++
			fmt.Printf("  [FAIL] user=%-32s status=%d %s\n", r.Email, r.StatusCode, r.Message)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Borrowed : %d\n", borrowed)
	fmt.Printf("Rejected : %d\n", rejected)
	fmt.Printf("Failures : %d\n", failures)
	fmt.Printf("Total    : %d\n\n", len(users))

	if borrowed > 1 {
		fmt.Printf("[FAIL] %d users borrowed the same book\n", borrowed)
		os.Exit(1)
	}
	if failures > 0 {
		fmt.Printf("[WARNING] %d request(s) failed, check server logs for details.\n", failures)
		os.Exit(1)
	}
}

func login(serverAddr, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(serverAddr+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, parsed.Error)
	}
	return parsed.Token, nil
}

// attemptBorrow sends POST /api/borrow for bookID on behalf of the token's owner.
func attemptBorrow(serverAddr, bookID, email, token string) borrowResult {
	body := fmt.Sprintf(`{"book_id":"%s"}`, bookID)
	req, err := http.NewRequest(http.MethodPost, serverAddr+"/api/borrow", bytes.NewBufferString(body))
	if err != nil {
		return borrowResult{Email: email, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return borrowResult{Email: email, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return borrowResult{Email: email, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}

	msg, _ := parsed["message"].(string)
	if e, ok := parsed["error"].(string); ok {
		msg = e
	}
	return borrowResult{Email: email, StatusCode: resp.StatusCode, Message: msg}
}

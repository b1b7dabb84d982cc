package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Simplified DTOs for the script
type envelope struct {
	Data json.RawMessage `json:"data"`
}

type createSessionData struct {
	ID string `json:"id"`
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
	Tone      string `json:"tone,omitempty"`
}

type queryData struct {
	Answer     string `json:"answer"`
	Confidence string `json:"confidence"`
	TokensUsed int    `json:"tokens_used"`
	Degraded   bool   `json:"degraded"`
	Sources    []struct {
		DocumentID string  `json:"document_id"`
		Score      float64 `json:"score"`
	} `json:"sources"`
}

type ingestRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func main() {
	token := os.Getenv("SIMULATION_TOKEN")
	if token == "" {
		log.Fatal("SIMULATION_TOKEN is required (workspace-scoped JWT)")
	}

	color.Cyan("=== Support Chat Simulation Client ===")

	ingestSampleDocument(token)

	sessionID, err := createSession(token)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	color.Green("Session created: %s", sessionID)

	questions := []string{
		"hello!",
		"what is the refund policy?",
		"and how do I request one?",
	}

	for _, q := range questions {
		color.Yellow("\nUSER: %s", q)

		start := time.Now()
		answer, err := sendQuery(token, sessionID, q)
		elapsed := time.Since(start)

		if err != nil {
			color.Red("Error: %v", err)
			continue
		}

		color.White("AI (%v, confidence=%s, tokens=%d): %s",
			elapsed.Round(time.Millisecond), answer.Confidence, answer.TokensUsed, answer.Answer)
		if answer.Degraded {
			color.Red("  (degraded response)")
		}
		for _, src := range answer.Sources {
			color.Blue("  source: doc=%s score=%.2f", src.DocumentID, src.Score)
		}

		time.Sleep(500 * time.Millisecond)
	}
}

func ingestSampleDocument(token string) {
	body, _ := json.Marshal(ingestRequest{
		Title: "Refund Policy",
		Content: "Refunds are available within 30 days of purchase. " +
			"To request a refund, open Settings > Billing and click 'Request refund'. " +
			"Processed refunds arrive on the original payment method within 5-7 business days.",
	})

	resp, err := doRequest(token, "POST", baseURL+"/document/v1", body)
	if err != nil {
		color.Red("Ingest failed (continuing anyway): %v", err)
		return
	}
	defer resp.Body.Close()
	color.Green("Sample document queued for indexing (status %d)", resp.StatusCode)

	// Give the async worker a moment
	time.Sleep(2 * time.Second)
}

func createSession(token string) (string, error) {
	resp, err := doRequest(token, "POST", baseURL+"/query/v1/session", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var env envelope
	if err := decode(resp, &env); err != nil {
		return "", err
	}
	var data createSessionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", err
	}
	return data.ID, nil
}

func sendQuery(token, sessionID, query string) (*queryData, error) {
	body, _ := json.Marshal(queryRequest{Query: query, SessionID: sessionID, Tone: "friendly"})

	resp, err := doRequest(token, "POST", baseURL+"/query/v1", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := decode(resp, &env); err != nil {
		return nil, err
	}
	var data queryData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func doRequest(token, method, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest(method, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return http.DefaultClient.Do(req)
}

func decode(resp *http.Response, out interface{}) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}

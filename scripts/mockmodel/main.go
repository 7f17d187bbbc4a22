// Command mockmodel runs a local OpenAI-compatible chat completions server
// for trying promptgauge without an API key:
//
//	go run ./scripts/mockmodel -port 8085
//	promptgauge run greeting --cases cases.json --base-url http://localhost:8085/v1 --model mock-model
//
// The server answers every request with a canned reply after an optional
// artificial delay, so latency thresholds and the dashboard have something
// to show.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"
)

func main() {
	port := flag.Int("port", 8085, "listening port")
	reply := flag.String("reply", "This is a mock reply.", "assistant reply content")
	delay := flag.Duration("delay", 50*time.Millisecond, "base response delay")
	jitter := flag.Duration("jitter", 30*time.Millisecond, "random extra delay, uniform in [0, jitter)")
	failRate := flag.Float64("fail-rate", 0, "fraction of requests answered with HTTP 500")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		wait := *delay
		if *jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(*jitter)))
		}
		time.Sleep(wait)

		if *failRate > 0 && rand.Float64() < *failRate {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": {"message": "mock overload", "type": "server_error"}}`))
			return
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		promptTokens := 0
		for _, m := range req.Messages {
			promptTokens += len(m.Content) / 4
		}
		completionTokens := len(*reply) / 4

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":      fmt.Sprintf("chatcmpl-mock-%d", time.Now().UnixNano()),
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": *reply},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     promptTokens,
				"completion_tokens": completionTokens,
				"total_tokens":      promptTokens + completionTokens,
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("encode response: %v", err)
		}
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("mock model listening on %s (POST /v1/chat/completions)", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

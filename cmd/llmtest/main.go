package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"

	"github.com/lumenclinic/practice-ai-platform/cmd/mainconfig"
	appconfig "github.com/lumenclinic/practice-ai-platform/internal/config"
	"github.com/lumenclinic/practice-ai-platform/internal/llm"
)

// Smoke-tests the generative backends with a short scheduling exchange.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := llm.LLMRequest{
		System: []string{"You are a friendly medical practice assistant. Keep responses brief and helpful."},
		Messages: []llm.ChatMessage{
			{Role: llm.ChatRoleUser, Content: "Hi, I'd like to book a cardiology appointment. What do you need from me?"},
			{Role: llm.ChatRoleAssistant, Content: "Happy to help. I'll need your name and whether you have a preferred day, then I can check coverage and available times."},
			{Role: llm.ChatRoleUser, Content: "I'm Maria Santos, any morning this week works."},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	}

	rule := strings.Repeat("=", 60)
	fmt.Println(rule)
	fmt.Println("LLM Provider Test")
	fmt.Println(rule)

	fmt.Println("\n[1] Testing Bedrock...")
	if cfg.BedrockModelID == "" {
		fmt.Println("    Skipping (BEDROCK_MODEL_ID not set)")
	} else if awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
		fmt.Printf("    Failed to load AWS config: %v\n", err)
	} else {
		client := llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg))
		bedrockReq := req
		bedrockReq.Model = cfg.BedrockModelID
		runOnce(ctx, "Bedrock", client, bedrockReq)
	}

	fmt.Println("\n[2] Testing Gemini...")
	if cfg.GeminiAPIKey == "" {
		fmt.Println("    Skipping (GEMINI_API_KEY not set)")
	} else if client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID); err != nil {
		fmt.Printf("    Failed to create Gemini client: %v\n", err)
	} else {
		defer client.Close()
		runOnce(ctx, "Gemini", client, req)
	}

	fmt.Println("\n" + rule)
	fmt.Println("If either provider responded, chat classification and analysis")
	fmt.Println("streaming will work; the API server falls back between them.")
}

func runOnce(ctx context.Context, name string, client llm.LLMClient, req llm.LLMRequest) {
	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Printf("    %s error: %v\n", name, err)
		os.Exit(1)
	}
	fmt.Printf("    %s response (%v):\n", name, elapsed.Round(time.Millisecond))
	fmt.Printf("    %s\n", resp.Text)
	fmt.Printf("    Tokens: in=%d, out=%d\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
}

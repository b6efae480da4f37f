package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gnemet/SlideGraph/internal/ai"
	"github.com/gnemet/SlideGraph/internal/config"
)

func main() {
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		log.Fatal(err)
	}
	settings, ok := cfg.AI.Active()
	if !ok {
		log.Fatalf("ai provider %q not configured", cfg.AI.ActiveProvider)
	}

	fmt.Printf("Testing SlideGraph Gemini bridge...\n")
	fmt.Printf("Model: %s\n", settings.Model)

	ctx := context.Background()
	gen, err := ai.NewGemini(ctx, settings)
	if err != nil {
		log.Fatal(err)
	}
	defer gen.Close()

	reply, usage, err := gen.Generate(ctx, "Test connection. Reply with 'SlideGraph Online'")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Success: %s (%d tokens)\n", reply, usage.TotalTokens)
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/adushin/queryguard/internal/auditlog"
	"github.com/adushin/queryguard/internal/codec"
	"github.com/adushin/queryguard/internal/config"
	"github.com/adushin/queryguard/internal/corpus"
	"github.com/adushin/queryguard/internal/llmjudge"
	"github.com/adushin/queryguard/internal/pipeline"
	"github.com/adushin/queryguard/internal/sqlgen"
	"github.com/adushin/queryguard/internal/store"
	"github.com/adushin/queryguard/internal/validator"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to guard.yaml (optional)")
	withJudge := flag.Bool("judge", false, "enable the secondary model-based relevance gate")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if err := auditlog.Init(st.DB()); err != nil {
		log.Fatalf("init audit log: %v", err)
	}

	model := corpus.BuildModel(cfg.Validator.CorpusSeed)
	v := validator.New(model, validator.Config{
		DeclineUnsafe:      cfg.Validator.DeclineUnsafe,
		DeclineOutOfDomain: cfg.Validator.DeclineOutOfDomain,
		HardRules:          cfg.Validator.HardRules,
	})

	client := codec.NewClient(codec.Options{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})

	systemPrompt, err := pipeline.BuildSystemPrompt(context.Background(), st)
	if err != nil {
		log.Fatalf("build system prompt: %v", err)
	}

	loop := sqlgen.New(
		codec.NewGenerator(client, cfg.LLM.GenModel, cfg.LLM.Temperature),
		st,
		sqlgen.Config{
			MaxAttempts:  cfg.Generation.MaxAttempts,
			SystemPrompt: systemPrompt,
			Verbose:      cfg.Generation.Verbose,
		},
	)

	var judge *llmjudge.Judge
	if *withJudge {
		judge = llmjudge.New(codec.NewRelevanceClassifier(client, cfg.LLM.ValidationModel))
	}

	p := pipeline.New(v, judge, loop, st, st.DB())

	fmt.Println("Query guard ready.")
	fmt.Printf("  DB: %s | LLM: %s\n", cfg.DBPath, cfg.LLM.BaseURL)
	fmt.Println("Type an analytics question (or 'quit' to exit):")

	runREPL(p)
}

// #endregion main

// #region repl

func runREPL(p *pipeline.Pipeline) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "quit" || query == "exit" {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		out := p.Handle(ctx, query)
		cancel()

		printOutcome(out)
	}
}

func printOutcome(out pipeline.Outcome) {
	if out.Err != nil {
		fmt.Printf("operational error: %v\n", out.Err)
		return
	}
	if out.Declined() {
		fmt.Printf("declined: %s\n", out.Verdict.Reason)
		return
	}
	if out.Generation != nil && out.Generation.Failed() {
		fmt.Printf("could not produce a valid query: %s\n", out.Generation.Err)
		if out.Generation.SQL != "" {
			fmt.Printf("last draft:\n%s\n", out.Generation.SQL)
		}
		return
	}

	fmt.Printf("\nSQL (%d attempt(s)):\n%s\n\n", out.Generation.Attempts, out.Generation.SQL)
	printTable(out)
}

func printTable(out pipeline.Outcome) {
	if out.Results == nil || len(out.Results.Rows) == 0 {
		fmt.Println("no rows")
		return
	}
	fmt.Println(strings.Join(out.Results.Columns, " | "))
	for _, row := range out.Results.Rows {
		fmt.Println(strings.Join(row, " | "))
	}
}

// #endregion repl

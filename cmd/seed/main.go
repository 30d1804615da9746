// Command seed populates the database with a demo tenant, plan,
// subscription, and knowledge base for local development.
//
// Usage:
//
//	DATABASE_URL=postgres://... BOT_TOKEN=123:abc... go run ./cmd/seed
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/botbase-io/botbase/internal/directory"
	"github.com/botbase-io/botbase/internal/idgen"
	"github.com/botbase-io/botbase/internal/knowledge"
)

var demoKnowledge = []string{
	"Our store hours are 9am to 6pm, Monday through Saturday. We are closed on Sundays.",
	"Standard shipping takes 3-5 business days. Express shipping takes 1-2 business days and costs an extra $10.",
	"Returns are accepted within 30 days of purchase with the original receipt. Refunds are issued to the original payment method.",
	"For order status questions, customers can check the tracking link in their confirmation email.",
}

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal("BOT_TOKEN environment variable is required (the Telegram token of the demo bot)")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	dirStore := directory.NewPostgresStore(db)
	kbStore := knowledge.NewPostgresStore(db)

	tenant := &directory.Tenant{
		ID:           idgen.WithPrefix("tnt_"),
		BotToken:     botToken,
		Name:         "Demo Store",
		ContactEmail: "owner@demo.example",
		CreatedAt:    time.Now().UTC(),
	}
	if err := dirStore.CreateTenant(ctx, tenant); err != nil {
		if errors.Is(err, directory.ErrBotTokenTaken) {
			log.Fatalf("A tenant with this bot token already exists; nothing to do")
		}
		log.Fatalf("Failed to create tenant: %v", err)
	}
	log.Printf("Created tenant %s (%s)", tenant.ID, tenant.Name)

	plan := &directory.Plan{
		ID:         idgen.WithPrefix("plan_"),
		Name:       "Starter",
		TokenLimit: 100000,
		PriceCents: 1900,
	}
	if err := dirStore.CreatePlan(ctx, plan); err != nil {
		log.Fatalf("Failed to create plan: %v", err)
	}
	log.Printf("Created plan %s (%d tokens/period)", plan.ID, plan.TokenLimit)

	now := time.Now().UTC()
	sub := &directory.Subscription{
		ID:        idgen.WithPrefix("sub_"),
		TenantID:  tenant.ID,
		PlanID:    plan.ID,
		StartDate: now,
		EndDate:   now.AddDate(0, 1, 0),
		IsActive:  true,
	}
	if err := dirStore.CreateSubscription(ctx, sub); err != nil {
		log.Fatalf("Failed to create subscription: %v", err)
	}
	log.Printf("Created subscription %s (active until %s)", sub.ID, sub.EndDate.Format(time.RFC3339))

	for _, content := range demoKnowledge {
		frag := &knowledge.Fragment{
			ID:        idgen.WithPrefix("kbf_"),
			TenantID:  tenant.ID,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		}
		if err := kbStore.CreateFragment(ctx, frag); err != nil {
			log.Fatalf("Failed to create knowledge fragment: %v", err)
		}
	}
	log.Printf("Created %d knowledge fragments", len(demoKnowledge))

	log.Println("Seed complete. Point the bot's webhook at /webhook/telegram/<token> and send it a message.")
}

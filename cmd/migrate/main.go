package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"cloud.google.com/go/bigquery"
)

// statements provision the dataset and tables the API reads and writes.
// Everything is IF NOT EXISTS so the tool is safe to re-run.
var statements = []struct {
	name string
	sql  string
}{
	{
		"dataset",
		"CREATE SCHEMA IF NOT EXISTS `%[1]s.%[2]s`",
	},
	{
		"transactions table",
		"CREATE TABLE IF NOT EXISTS `%[1]s.%[2]s.transactions` (" +
			"transaction_id STRING NOT NULL, " +
			"user_id STRING NOT NULL, " +
			"merchant STRING, " +
			"amount FLOAT64, " +
			"category STRING, " +
			"description STRING, " +
			"txn_date TIMESTAMP, " +
			"ai_categorized BOOL, " +
			"receipt_image_url STRING, " +
			"created_ts TIMESTAMP, " +
			"updated_ts TIMESTAMP" +
			")",
	},
	{
		"user_profiles table",
		"CREATE TABLE IF NOT EXISTS `%[1]s.%[2]s.user_profiles` (" +
			"user_id STRING NOT NULL, " +
			"email STRING, " +
			"name STRING, " +
			"monthly_income FLOAT64, " +
			"fixed_bills FLOAT64, " +
			"savings_goal FLOAT64, " +
			"telegram_connected BOOL, " +
			"telegram_username STRING, " +
			"telegram_user_id STRING, " +
			"created_ts TIMESTAMP" +
			")",
	},
}

var (
	projectID = flag.String("project", "", "GCP project ID (required)")
	datasetID = flag.String("dataset", "finsight", "BigQuery dataset ID")
)

func main() {
	flag.Parse()

	if *projectID == "" {
		log.Fatal("Error: -project flag is required. Please specify your GCP project ID.")
	}

	ctx := context.Background()

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatalf("Failed to create BigQuery client: %v", err)
	}
	defer client.Close()

	log.Printf("Provisioning BigQuery project: %s, dataset: %s", *projectID, *datasetID)

	for _, stmt := range statements {
		if err := run(ctx, client, fmt.Sprintf(stmt.sql, *projectID, *datasetID)); err != nil {
			log.Fatalf("Failed to create %s: %v", stmt.name, err)
		}
		log.Printf("Ensured %s", stmt.name)
	}

	log.Println("Done")
}

func run(ctx context.Context, client *bigquery.Client, sql string) error {
	job, err := client.Query(sql).Run(ctx)
	if err != nil {
		return fmt.Errorf("run: starting query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("run: waiting for query: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("run: query failed: %w", err)
	}
	return nil
}

// cmd/seed carga la registry canónica de NodeDetail y, opcionalmente, flows
// de ejemplo desde un fixture JSON. No forma parte del request path del
// motor; es una herramienta de desarrollo local y de preparación de tests,
// equivalente a los scripts import_flow_data.py/populate_node_details.py del
// sistema original.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/Abraxas-365/relay/engine"
	"github.com/Abraxas-365/relay/pkg/config"
	"github.com/Abraxas-365/relay/pkg/database"
	"github.com/Abraxas-365/relay/store"
	"github.com/jmoiron/sqlx"
)

func main() {
	migrateUp := flag.Bool("migrate", false, "apply pending store/migrations before seeding")
	migrationsPath := flag.String("migrations-path", "store/migrations", "directory with golang-migrate numbered .up/.down.sql files")
	flowsPath := flag.String("flows", "", "path to a JSON file with sample flows to load (optional)")
	skipNodeDetails := flag.Bool("skip-node-details", false, "skip seeding the NodeDetail registry")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	ctx := context.Background()

	if *migrateUp {
		if err := applyMigrations(db, *migrationsPath); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}

	if !*skipNodeDetails {
		if err := seedNodeDetails(ctx, db); err != nil {
			log.Fatalf("failed to seed node details: %v", err)
		}
	}

	if *flowsPath != "" {
		if err := seedFlows(ctx, db, *flowsPath); err != nil {
			log.Fatalf("failed to seed flows: %v", err)
		}
	}

	log.Println("✅ seed complete")
}

// applyMigrations corre las migraciones pendientes de migrationsPath contra
// la conexión ya abierta, reusando *sqlx.DB en vez de abrir una segunda vía
// una database URL (golang-migrate soporta ambas; esto evita duplicar la
// lógica de DSN de pkg/database).
func applyMigrations(db *sqlx.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate version: %w", err)
	}
	log.Printf("  ✓ migrations applied (version=%d dirty=%v)", version, dirty)
	return nil
}

// seedNodeDetails puebla node_details con la registry canónica de
// engine.DefaultNodeDetails, usada por el Orchestrator para resolver la
// categoría/input-required de cada nodo al avanzar un flow.
func seedNodeDetails(ctx context.Context, db *sqlx.DB) error {
	repo := store.NewPostgresNodeDetailRepository(db)
	for _, nd := range engine.DefaultNodeDetails() {
		if err := repo.Upsert(ctx, nd); err != nil {
			return fmt.Errorf("upsert node detail %s: %w", nd.NodeType, err)
		}
		log.Printf("  ✓ node_detail %s", nd.NodeType)
	}
	return nil
}

// flowFixture es la forma de un archivo de fixtures: una lista de flows tal
// como los produce/consume la API de administración de flows (spec §6),
// más los triggers que se derivarían de sus nodos trigger_keyword/template.
type flowFixture struct {
	Flows []engine.Flow `json:"flows"`
}

// seedFlows inserta flows de ejemplo y deriva sus triggers, replicando lo
// que engine/flowapi.Handler.CreateFlow hace para un flow creado vía HTTP.
func seedFlows(ctx context.Context, db *sqlx.DB, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}

	var fixture flowFixture
	if err := json.Unmarshal(raw, &fixture); err != nil {
		return fmt.Errorf("decode fixture: %w", err)
	}

	flows := store.NewPostgresFlowRepository(db)
	triggers := store.NewPostgresTriggerRepository(db)

	for _, flow := range fixture.Flows {
		if err := flows.Save(ctx, flow); err != nil {
			return fmt.Errorf("save flow %s: %w", flow.ID, err)
		}
		if err := triggers.ReplaceForFlow(ctx, flow.ID, deriveTriggers(flow)); err != nil {
			return fmt.Errorf("replace triggers for flow %s: %w", flow.ID, err)
		}
		log.Printf("  ✓ flow %s (%s)", flow.ID, flow.Name)
	}
	return nil
}

// deriveTriggers replica engine/flowapi.deriveTriggers: un nodo
// trigger_keyword/trigger_template guarda sus valores de disparo en
// Data["values"].
func deriveTriggers(flow engine.Flow) []engine.Trigger {
	triggers := make([]engine.Trigger, 0)
	for _, node := range flow.Nodes {
		var triggerType engine.TriggerType
		switch node.Type {
		case engine.NodeTypeTriggerKeyword:
			triggerType = engine.TriggerTypeKeyword
		case engine.NodeTypeTriggerTemplate:
			triggerType = engine.TriggerTypeTemplate
		default:
			continue
		}
		triggers = append(triggers, engine.Trigger{
			FlowID:        flow.ID,
			NodeID:        node.ID,
			BrandID:       flow.BrandID,
			TriggerType:   triggerType,
			TriggerValues: stringSliceField(node.Data, "values"),
		})
	}
	return triggers
}

func stringSliceField(data map[string]any, key string) []string {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

package testkit

import (
	"context"
	"math"
	"testing"

	"regnet/domain/core"
	"regnet/domain/run"
)

func TestNetworkDataGenerator_Basic(t *testing.T) {
	config := DefaultNetworkConfig()
	data, err := NewNetworkDataGenerator(config).Generate()
	if err != nil {
		t.Fatalf("Failed to generate dataset: %v", err)
	}

	rows, cols := data.Baseline.Dims()
	if rows != config.TFCount+config.GeneCount || cols != config.SampleCount {
		t.Errorf("Expected %dx%d baseline, got %dx%d", config.TFCount+config.GeneCount, config.SampleCount, rows, cols)
	}

	// every gene must carry a motif
	covered := make(map[string]bool)
	for _, e := range data.Edges {
		covered[e.Gene] = true
	}
	for _, g := range data.Genes {
		if !covered[g] {
			t.Errorf("Gene %s has no motif edge", g)
		}
	}
}

func TestNetworkDataGenerator_Deterministic(t *testing.T) {
	a, err := NewNetworkDataGenerator(DefaultNetworkConfig()).Generate()
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewNetworkDataGenerator(DefaultNetworkConfig()).Generate()
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Edges) != len(b.Edges) {
		t.Fatalf("Edge counts differ: %d vs %d", len(a.Edges), len(b.Edges))
	}
	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			t.Errorf("Edge %d differs: %+v vs %+v", i, a.Edges[i], b.Edges[i])
		}
	}
	if a.Alternate.Data.At(3, 2) != b.Alternate.Data.At(3, 2) {
		t.Error("Expected identical expression for identical seeds")
	}
}

func TestNetworkDataGenerator_MissingValues(t *testing.T) {
	config := DefaultNetworkConfig()
	config.MissingRate = 0.2
	data, err := NewNetworkDataGenerator(config).Generate()
	if err != nil {
		t.Fatal(err)
	}
	missing := 0
	for _, row := range data.Baseline.Rows() {
		for _, v := range row {
			if math.IsNaN(v) {
				missing++
			}
		}
	}
	if missing == 0 {
		t.Error("Expected missing values at a 20% missing rate")
	}
}

func TestNetworkDataGenerator_RejectsEmptyConfig(t *testing.T) {
	if _, err := NewNetworkDataGenerator(NetworkGeneratorConfig{}).Generate(); err == nil {
		t.Error("Expected an error for an empty configuration")
	}
}

func TestInMemoryRunRepository(t *testing.T) {
	repo := NewInMemoryRunRepository()
	ctx := context.Background()

	report := &run.Report{ID: core.NewRunID(), CreatedAt: core.Now(), Parameters: run.Parameters{Method: "bere"}}
	if err := repo.Save(ctx, report); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Get(ctx, report.ID)
	if err != nil || got != report {
		t.Fatalf("Expected stored report, got %v, %v", got, err)
	}
	if _, err := repo.Get(ctx, core.NewRunID()); !core.IsNotFoundError(err) {
		t.Errorf("Expected not found, got %v", err)
	}

	list, err := repo.List(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Method != "bere" {
		t.Errorf("Unexpected listing %+v", list)
	}
}

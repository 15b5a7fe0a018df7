package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

func writeNPY(t *testing.T, path string, m *mat.Dense) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := npyio.Write(f, m); err != nil {
		t.Fatalf("npyio.Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()

	weightsPath := filepath.Join(dir, "net.genotype")
	if err := os.WriteFile(weightsPath, []byte("2;0"), 0o644); err != nil {
		t.Fatal(err)
	}

	inputsPath := filepath.Join(dir, "in.npy")
	writeNPY(t, inputsPath, mat.NewDense(2, 1, []float64{3, -3}))

	c := &BatchCommand{
		topology:    "1,1",
		weightsFile: weightsPath,
		inputsFile:  inputsPath,
		outputsFile: filepath.Join(dir, "out.npy"),
		threads:     2,
	}
	if err := c.executeErr(context.Background()); err != nil {
		t.Fatalf("executeErr: %v", err)
	}

	f, err := os.Open(c.outputsFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var y mat.Dense
	if err := npyio.Read(f, &y); err != nil {
		t.Fatalf("npyio.Read: %v", err)
	}

	rows, cols := y.Dims()
	if rows != 2 || cols != 1 {
		t.Fatalf("output shape = (%d, %d), want (2, 1)", rows, cols)
	}
	if diff := cmp.Diff(y.RawMatrix().Data, []float64{6.0 / 7.0, -6.0 / 7.0}, cmpopts.EquateApprox(0, 1e-15)); diff != "" {
		t.Errorf("Wrong outputs; diff (-got +want)\n%s", diff)
	}
}

func TestBatchCommandRejectsWrongInputWidth(t *testing.T) {
	dir := t.TempDir()

	weightsPath := filepath.Join(dir, "net.genotype")
	if err := os.WriteFile(weightsPath, []byte("2;0"), 0o644); err != nil {
		t.Fatal(err)
	}

	inputsPath := filepath.Join(dir, "in.npy")
	writeNPY(t, inputsPath, mat.NewDense(1, 2, []float64{3, -3}))

	c := &BatchCommand{
		topology:    "1,1",
		weightsFile: weightsPath,
		inputsFile:  inputsPath,
		outputsFile: filepath.Join(dir, "out.npy"),
		threads:     2,
	}
	if err := c.executeErr(context.Background()); err == nil {
		t.Errorf("executeErr succeeded on 2-column inputs for a 1-input network")
	}
	if _, err := os.Stat(c.outputsFile); err == nil {
		t.Errorf("outputs file written despite the error")
	}
}

package impact

import (
	"testing"

	"github.com/agusespa/testscope/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calculatorTestSource = `package com.example;

import org.junit.jupiter.api.Test;

class CalculatorTest {
    @Test
    void total() {
        assertEquals(3, new Calculator().computeTotal(new int[]{1, 2}));
    }

    @Test
    void average() {
        Runnable r = () -> calc.computeAverage(xs);
        r.run();
    }

    private void helper() {
        calc.reset();
    }
}
`

func TestIndexer_Index(t *testing.T) {
	indexer := NewIndexer(newRegistry())

	unit := &types.SourceUnit{Path: "src/test/java/com/example/CalculatorTest.java", Content: []byte(calculatorTestSource)}
	testUnit, diag := indexer.Index(unit)

	require.Nil(t, diag)
	require.NotNil(t, testUnit)

	assert.Equal(t, "com.example.CalculatorTest", testUnit.ID)
	assert.Equal(t, unit.Path, testUnit.Path)
	assert.Equal(t, "java", testUnit.Language)
	assert.Equal(t, "com.example", testUnit.Package)
	assert.Equal(t, []string{"total", "average"}, testUnit.TestMethods)

	assert.True(t, testUnit.Invoked.Has("computeTotal"))
	assert.True(t, testUnit.Invoked.Has("computeAverage"), "calls inside lambdas count")
	assert.True(t, testUnit.Invoked.Has("Calculator"))
	assert.False(t, testUnit.Invoked.Has("reset"), "non-test methods are not scanned")

	assert.True(t, testUnit.Calls["total"].Has("computeTotal"))
	assert.False(t, testUnit.Calls["total"].Has("computeAverage"))
}

func TestIndexer_NoTestEntryPoints(t *testing.T) {
	indexer := NewIndexer(newRegistry())

	unit := &types.SourceUnit{Path: "pkg/helpers_test.go", Content: []byte("package pkg\n\nfunc helper() { work() }\n")}
	testUnit, diag := indexer.Index(unit)

	assert.Nil(t, testUnit)
	assert.Nil(t, diag)
}

func TestIndexer_ParseFailure(t *testing.T) {
	indexer := NewIndexer(newRegistry())

	unit := &types.SourceUnit{Path: "BrokenTest.java", Content: []byte("class BrokenTest { @Test void a( }")}
	testUnit, diag := indexer.Index(unit)

	assert.Nil(t, testUnit)
	require.NotNil(t, diag)
	assert.Equal(t, types.StageParse, diag.Stage)
}

func TestIndexer_GoUsesPathAsID(t *testing.T) {
	indexer := NewIndexer(newRegistry())

	unit := &types.SourceUnit{Path: "billing/calc_test.go", Content: []byte(`package billing

import "testing"

func TestTotal(t *testing.T) { ComputeTotal(nil) }
`)}
	testUnit, diag := indexer.Index(unit)

	require.Nil(t, diag)
	require.NotNil(t, testUnit)
	assert.Equal(t, "billing/calc_test.go", testUnit.ID)
	assert.Equal(t, "billing", testUnit.Package)
	assert.Equal(t, []string{"ComputeTotal"}, testUnit.Invoked.Strings())
}

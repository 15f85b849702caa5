package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCParser_Declarations(t *testing.T) {
	parser := NewCParser()

	cCode := []byte(`#include <stdlib.h>

static int compute_total(const int *xs, int n) {
    int total = 0;
    for (int i = 0; i < n; i++) total += xs[i];
    return total;
}

char *make_label(void) {
    return malloc(8);
}

int prototype_only(int x);
`)

	decls, err := parser.Declarations("src/total.c", cCode)
	require.NoError(t, err)
	require.Len(t, decls, 2)

	assert.Equal(t, "compute_total", decls[0].Name)
	assert.Equal(t, 3, decls[0].StartLine)
	assert.Equal(t, 7, decls[0].EndLine)
	assert.Equal(t, "make_label", decls[1].Name)
}

func TestCParser_TestCalls(t *testing.T) {
	parser := NewCParser()

	cCode := []byte(`#include "total.h"

void test_total(void) {
    int xs[] = {1, 2};
    assert(compute_total(xs, 2) == 3);
}

static void setup(void) {
    reset();
}

void test_ops(struct ops *o) {
    o->apply(1);
}
`)

	testFile, err := parser.TestCalls("tests/test_total.c", cCode)
	require.NoError(t, err)

	assert.Equal(t, "tests/test_total.c", testFile.ID)
	require.Len(t, testFile.Methods, 2)
	assert.Equal(t, "test_total", testFile.Methods[0].Name)
	assert.ElementsMatch(t, []string{"assert", "compute_total"}, testFile.Methods[0].Calls)
	assert.Equal(t, "test_ops", testFile.Methods[1].Name)
	assert.Equal(t, []string{"apply"}, testFile.Methods[1].Calls)
}

func TestCParser_IsTestFile(t *testing.T) {
	parser := NewCParser()
	assert.True(t, parser.IsTestFile("tests/test_total.c"))
	assert.True(t, parser.IsTestFile("total_test.c"))
	assert.False(t, parser.IsTestFile("src/total.c"))
	assert.False(t, parser.IsTestFile("tests/test_total.h"))
}

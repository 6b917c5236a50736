package es

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "proj_p1_legal_docs", CollectionName("p1", "Legal Docs"))
	assert.Equal(t, "proj_p1", CollectionName("p1", ""))
	// 相同输入确定性地得到相同集合名
	assert.Equal(t, CollectionName("p1", "Legal Docs"), CollectionName("p1", "Legal Docs"))
	// 不同项目必然隔离到不同集合
	assert.NotEqual(t, CollectionName("p1", "Same"), CollectionName("p2", "Same"))
}

func TestCollectionNameSanitizesSpecialChars(t *testing.T) {
	name := CollectionName("Proj/123", "市场部 Q4!!")
	assert.Equal(t, strings.ToLower(name), name)
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, "!")
	assert.NotContains(t, name, " ")
	assert.False(t, strings.HasSuffix(name, "_"))
}

func TestCollectionNameLengthCapped(t *testing.T) {
	long := strings.Repeat("x", 500)
	name := CollectionName(long, long)
	assert.LessOrEqual(t, len(name), 200)
}

func TestBuildFilterClausesTermAndTerms(t *testing.T) {
	clauses := BuildFilterClauses(map[string]interface{}{
		"category":   "legal",
		"chunk_type": []string{"section", "section_part"},
	})
	require.Len(t, clauses, 2)

	var term, terms map[string]interface{}
	for _, c := range clauses {
		if v, ok := c["term"]; ok {
			term = v.(map[string]interface{})
		}
		if v, ok := c["terms"]; ok {
			terms = v.(map[string]interface{})
		}
	}
	require.NotNil(t, term)
	assert.Equal(t, "legal", term["category"])
	require.NotNil(t, terms)
	assert.Equal(t, []string{"section", "section_part"}, terms["chunk_type"])
}

func TestBuildFilterClausesRange(t *testing.T) {
	clauses := BuildFilterClauses(map[string]interface{}{
		"hierarchy_level": map[string]interface{}{"gte": 2, "lte": 4},
	})
	require.Len(t, clauses, 1)
	rng := clauses[0]["range"].(map[string]interface{})["hierarchy_level"].(map[string]interface{})
	assert.Equal(t, 2, rng["gte"])
	assert.Equal(t, 4, rng["lte"])
}

func TestBuildFilterClausesIgnoresUnknownFields(t *testing.T) {
	clauses := BuildFilterClauses(map[string]interface{}{
		"category":     "legal",
		"vector":       []float32{0.1},
		"content":      "should not be filterable",
		"random_field": 42,
		"summary":      nil,
	})
	require.Len(t, clauses, 1)
	_, ok := clauses[0]["term"]
	assert.True(t, ok)
}

func TestBuildFilterClausesEmpty(t *testing.T) {
	assert.Empty(t, BuildFilterClauses(nil))
	assert.Empty(t, BuildFilterClauses(map[string]interface{}{}))
}

package definition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaconlabs/switchyard/definition"
)

func TestDefinitionParentFallback(t *testing.T) {
	parent := definition.NewDefinition().
		SetTitle("Catalog").
		SetDescription("Catalog endpoints").
		SetType("catalog").
		SetMeta("owner", "team-a")

	child := definition.NewDefinition().SetParent(parent).SetTitle("Search")

	assert.Equal(t, "Search", child.Title())
	assert.Equal(t, "Catalog endpoints", child.Description())
	assert.Equal(t, "catalog", child.Type())
	assert.Nil(t, child.Meta("owner"), "meta never falls back to the parent")

	orphan := definition.NewDefinition()
	assert.Equal(t, "", orphan.Title())
	assert.Equal(t, "", orphan.Type())
}

func TestDefinitionExplicitEmptyOverridesParent(t *testing.T) {
	parent := definition.NewDefinition().SetType("catalog")
	child := definition.NewDefinition().SetParent(parent).SetType("")

	assert.Equal(t, "", child.Type())
}

func TestDefinitionParamsKeepDeclarationOrder(t *testing.T) {
	def := definition.NewDefinition().
		Param("query", "string|required").
		Param("page", "int|min:1").
		Param("tags", definition.ArrayParam("", definition.StringParam("tag"))).
		Param("query", "string|required|min:2")

	params, err := def.Params()
	require.NoError(t, err)
	require.Len(t, params, 3)

	assert.Equal(t, "query", params[0].Name)
	assert.Equal(t, []string{"required", "min:2"}, params[0].Validation)
	assert.True(t, params[0].Required())

	assert.Equal(t, definition.Int, params[1].Type)
	assert.False(t, params[1].Required())

	assert.Equal(t, "tags", params[2].Name)
	assert.Equal(t, definition.Array, params[2].Type)
}

func TestDefinitionParamsRejectsInnerOnScalar(t *testing.T) {
	bad := definition.StringParam("name").Add(definition.StringParam("first"))
	def := definition.NewDefinition().AddParams(bad)

	_, err := def.Params()
	assert.ErrorIs(t, err, definition.ErrInnerNotAllowed)
}

func TestDefinitionParamsRejectsCommaInEnum(t *testing.T) {
	def := definition.NewDefinition().AddParams(
		definition.ObjectParam("filter",
			definition.StringParam("sort").WithEnum("name", "price,desc"),
			definition.IntParam("page"),
		),
	)

	_, err := def.Params()
	assert.ErrorIs(t, err, definition.ErrInvalidEnum)

	ok := definition.NewDefinition().AddParams(definition.StringParam("sort").WithEnum("name", "price"))
	_, err = ok.Params()
	assert.NoError(t, err)
}

func TestParseMapSpec(t *testing.T) {
	p, err := definition.Parse("status", map[string]any{
		"type":        "string",
		"title":       "Status",
		"description": "Order status",
		"default":     "open",
		"validation":  []any{"required"},
		"rules":       "max:10",
		"enum":        []any{"open", "closed"},
	})
	require.NoError(t, err)

	assert.Equal(t, definition.String, p.Type)
	assert.Equal(t, "Status", p.Title)
	assert.Equal(t, "open", p.Default)
	assert.Equal(t, []string{"required", "max:10"}, p.Validation)
	assert.Equal(t, []any{"open", "closed"}, p.Enum)
}

func TestParseRejectsBadSpecs(t *testing.T) {
	_, err := definition.Parse("x", 42)
	assert.ErrorIs(t, err, definition.ErrInvalidSpec)

	_, err = definition.Parse("x", map[string]any{"type": "matrix"})
	assert.ErrorIs(t, err, definition.ErrUnknownType)

	_, err = definition.Parse("x", map[string]any{"validation": []any{1}})
	assert.ErrorIs(t, err, definition.ErrInvalidSpec)
}

func TestParseRuleStringWithoutType(t *testing.T) {
	p, err := definition.Parse("email", "required|email")
	require.NoError(t, err)

	assert.Equal(t, definition.String, p.Type)
	assert.Equal(t, []string{"required", "email"}, p.Validation)
}

func TestLoadYAML(t *testing.T) {
	doc := []byte(`
search:
  title: Search products
  type: catalog
  meta:
    public: true
  params:
    query: string|required|min:2
    page:
      type: int
      default: 1
    filters:
      type: object
      inner:
        brand: string
        max_price: number|min:0
    tags:
      type: array
      inner:
        tag: string
`)
	defs, err := definition.LoadYAML(doc)
	require.NoError(t, err)
	require.Contains(t, defs, "search")

	def := defs["search"]
	assert.Equal(t, "Search products", def.Title())
	assert.Equal(t, "catalog", def.Type())
	assert.Equal(t, true, def.Meta("public"))

	params, err := def.Params()
	require.NoError(t, err)
	require.Len(t, params, 4)

	assert.Equal(t, []string{"query", "page", "filters", "tags"},
		[]string{params[0].Name, params[1].Name, params[2].Name, params[3].Name})
	assert.Equal(t, 1, params[1].Default)

	filters := params[2]
	require.Len(t, filters.Inner, 2)
	assert.Equal(t, "brand", filters.Inner[0].Name)
	assert.Equal(t, "max_price", filters.Inner[1].Name)
	assert.Equal(t, definition.Number, filters.Inner[1].Type)

	require.Len(t, params[3].Inner, 1)
}

func TestLoadYAMLErrors(t *testing.T) {
	_, err := definition.LoadYAML([]byte("- a\n- b\n"))
	assert.Error(t, err)

	_, err = definition.LoadYAML([]byte("search:\n  colour: red\n"))
	assert.Error(t, err)

	defs, err := definition.LoadYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, defs)
}

package generator

import (
	"cmp"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/moamenhredeen/oasrec/internal/models"
	"github.com/moamenhredeen/oasrec/internal/schema"
	"github.com/moamenhredeen/oasrec/internal/tree"
)

var methodOrder = []string{"GET", "PUT", "POST", "DELETE", "OPTIONS", "HEAD", "PATCH", "TRACE"}

func methodRank(m string) int {
	if i := slices.Index(methodOrder, m); i >= 0 {
		return i
	}
	return len(methodOrder)
}

// Operations returns the accumulated operation keys ordered by path, then
// by method in path item order.
func (a *Accumulator) Operations() []models.OperationKey {
	keys := make([]models.OperationKey, 0, len(a.ops))
	for k := range a.ops {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y models.OperationKey) int {
		if c := cmp.Compare(x.Path, y.Path); c != 0 {
			return c
		}
		if c := cmp.Compare(methodRank(x.Method), methodRank(y.Method)); c != 0 {
			return c
		}
		return cmp.Compare(x.Method, y.Method)
	})
	return keys
}

// Document assembles the candidate document from everything accumulated.
// Object schemas carry a required list even when it is empty; reconciling
// against a persisted document removes the empty ones.
func (a *Accumulator) Document() *tree.Node {
	doc := tree.NewMap(
		tree.KeyVal{Key: "openapi", Value: tree.FromString(a.cfg.OpenAPIVersion)},
		tree.KeyVal{Key: "info", Value: tree.NewMap(
			tree.KeyVal{Key: "title", Value: tree.FromString(a.cfg.Title)},
			tree.KeyVal{Key: "version", Value: tree.FromString(a.cfg.Version)},
		)},
	)
	if len(a.cfg.Servers) > 0 {
		servers := tree.FromSlice(nil)
		for _, url := range a.cfg.Servers {
			servers.Append(tree.NewMap(tree.KeyVal{Key: "url", Value: tree.FromString(url)}))
		}
		doc.Set("servers", servers)
	}

	paths := tree.NewMap()
	for _, k := range a.Operations() {
		item, ok := paths.Get(k.Path)
		if !ok {
			item = tree.NewMap()
			paths.Set(k.Path, item)
		}
		item.Set(strings.ToLower(k.Method), a.ops[k].render(a.cfg))
	}
	doc.Set("paths", paths)
	return doc
}

func (op *operation) render(cfg Config) *tree.Node {
	out := tree.NewMap()
	if op.summary != "" {
		out.Set("summary", tree.FromString(op.summary))
	}
	if op.operationID != "" {
		out.Set("operationId", tree.FromString(op.operationID))
	}
	if len(op.tags) > 0 {
		tags := tree.FromSlice(nil)
		for _, t := range op.tags {
			tags.Append(tree.FromString(t))
		}
		out.Set("tags", tags)
	}

	if len(op.params) > 0 {
		params := tree.FromSlice(nil)
		for _, p := range op.params {
			required := p.in == "path" || p.seen == op.exchanges
			params.Append(tree.NewMap(
				tree.KeyVal{Key: "name", Value: tree.FromString(p.name)},
				tree.KeyVal{Key: "in", Value: tree.FromString(p.in)},
				tree.KeyVal{Key: "required", Value: tree.FromBool(required)},
				tree.KeyVal{Key: "schema", Value: schema.ToTree(p.schema)},
			))
		}
		out.Set("parameters", params)
	}

	if op.bodies > 0 {
		out.Set("requestBody", tree.NewMap(
			tree.KeyVal{Key: "required", Value: tree.FromBool(op.bodies == op.exchanges)},
			tree.KeyVal{Key: "content", Value: op.request.render(cfg)},
		))
	}

	statuses := make([]int, 0, len(op.responses))
	for s := range op.responses {
		statuses = append(statuses, s)
	}
	slices.Sort(statuses)
	responses := tree.NewMap()
	for _, s := range statuses {
		responses.Set(strconv.Itoa(s), op.responses[s].render(cfg))
	}
	out.Set("responses", responses)
	return out
}

func (res *response) render(cfg Config) *tree.Node {
	description := res.description
	if description == "" {
		description = http.StatusText(res.status)
	}
	out := tree.NewMap(tree.KeyVal{Key: "description", Value: tree.FromString(description)})
	if len(res.headers) > 0 {
		headers := tree.NewMap()
		for _, h := range res.headers {
			headers.Set(h.name, tree.NewMap(tree.KeyVal{Key: "schema", Value: schema.ToTree(h.schema)}))
		}
		out.Set("headers", headers)
	}
	if len(res.content.media) > 0 {
		out.Set("content", res.content.render(cfg))
	}
	return out
}

func (c *content) render(cfg Config) *tree.Node {
	out := tree.NewMap()
	for _, m := range c.media {
		mt := tree.NewMap(tree.KeyVal{Key: "schema", Value: schema.ToTree(m.schema)})
		switch {
		case len(m.examples) == 0:
		case cfg.MaxExamples == 1:
			mt.Set("example", m.examples[0].value.Clone())
		default:
			examples := tree.NewMap()
			for _, e := range m.examples {
				ex := tree.NewMap()
				if e.summary != "" {
					ex.Set("summary", tree.FromString(e.summary))
				}
				ex.Set("value", e.value.Clone())
				examples.Set(e.name, ex)
			}
			mt.Set("examples", examples)
		}
		out.Set(m.contentType, mt)
	}
	return out
}

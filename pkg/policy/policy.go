package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/storage"
	"github.com/open-policy-agent/opa/storage/inmem"
	"github.com/open-policy-agent/opa/util"
)

// Policy evaluates rego modules loaded from a filesystem against a JSON data document
type Policy struct {
	modules map[string]string
	store   storage.Store
	query   string

	mu       sync.Mutex
	prepared *rego.PreparedEvalQuery
}

// New loads every .rego file of fsys. data is the JSON document exposed as `data`.
func New(fsys fs.FS, data []byte) (*Policy, error) {
	var modules = make(map[string]string)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || path.Ext(p) != ".rego" {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read policy %s: %w", p, err)
		}

		modules[p] = string(content)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(modules) == 0 {
		return nil, errors.New("no policy found")
	}

	var doc = make(map[string]interface{})
	if len(data) > 0 {
		if err := util.UnmarshalJSON(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to load policy data: %w", err)
		}
	}

	return &Policy{
		modules: modules,
		store:   inmem.NewFromObject(doc),
	}, nil
}

// AddQuery sets the query to evaluate, e.g. "data.portguard.autorule.decision"
func (p *Policy) AddQuery(query string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.query = query
	p.prepared = nil
}

func (p *Policy) prepare(ctx context.Context) (*rego.PreparedEvalQuery, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.prepared != nil {
		return p.prepared, nil
	}

	if p.query == "" {
		return nil, errors.New("no query set")
	}

	var options = []func(*rego.Rego){
		rego.Query(p.query),
		rego.Store(p.store),
	}

	for name, src := range p.modules {
		options = append(options, rego.Module(name, src))
	}

	pq, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare policy: %w", err)
	}

	p.prepared = &pq
	return p.prepared, nil
}

func (p *Policy) eval(ctx context.Context, input []byte) (interface{}, error) {
	pq, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}

	var in interface{}
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("failed to parse policy input: %w", err)
	}

	rs, err := pq.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}

	return rs[0].Expressions[0].Value, nil
}

// Eval evaluates a boolean query. An undefined result is false.
func (p *Policy) Eval(ctx context.Context, input []byte) (bool, error) {
	v, err := p.eval(ctx, input)
	if err != nil {
		return false, err
	}

	b, _ := v.(bool)
	return b, nil
}

// EvalString evaluates a query producing a string. An undefined result is "".
func (p *Policy) EvalString(ctx context.Context, input []byte) (string, error) {
	v, err := p.eval(ctx, input)
	if err != nil {
		return "", err
	}

	if v == nil {
		return "", nil
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected policy result type %T", v)
	}

	return s, nil
}

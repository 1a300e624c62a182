package pushdown

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/pushdown/internal/catalog"
	"github.com/roach88/pushdown/internal/config"
	"github.com/roach88/pushdown/internal/conn"
	"github.com/roach88/pushdown/internal/dialect"
	"github.com/roach88/pushdown/internal/plan"
	"github.com/roach88/pushdown/internal/readmode"
	"github.com/roach88/pushdown/internal/sqlgen"
)

// Catalog resolves scanned tables to their connection and store version.
// *catalog.Catalog implements it.
type Catalog interface {
	Lookup(ref plan.TableRef) (catalog.Binding, bool)
}

// Compiler rewrites plans for one catalog and configuration.
//
// A Compiler holds no per-compilation state and is safe for concurrent
// use.
type Compiler struct {
	catalog Catalog
	opts    config.Options
	builder *sqlgen.Builder
	logger  *slog.Logger
	metrics *Metrics
	ids     IDGenerator
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// WithMetrics sets the metrics the compiler reports to. By default each
// Compiler gets its own unregistered set.
func WithMetrics(m *Metrics) Option {
	return func(c *Compiler) {
		c.metrics = m
	}
}

// New creates a Compiler.
func New(cat Catalog, opts config.Options, options ...Option) *Compiler {
	c := &Compiler{
		catalog: cat,
		opts:    opts,
		builder: sqlgen.NewBuilder(),
		logger:  slog.Default(),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range options {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics()
	}
	return c
}

// Result is the outcome of one compilation.
type Result struct {
	// CompileID correlates this compilation's log lines.
	CompileID string `json:"compile_id"`

	// Plan is the rewritten plan. It is the input plan itself when nothing
	// was pushed.
	Plan plan.Operator `json:"-"`

	// Status is the final state of the root operator.
	Status State `json:"status"`

	// Relations are the pushed relations in pre-order of Plan.
	Relations []*plan.Relation `json:"relations"`

	// Decisions has one entry per input operator, by pre-order ID.
	Decisions []Decision `json:"decisions"`
}

// Decision returns the decision for the operator at path.
func (r *Result) Decision(path string) (Decision, bool) {
	for _, d := range r.Decisions {
		if d.Path == path {
			return d, true
		}
	}
	return Decision{}, false
}

// node is the bottom-up build result for one operator.
type node struct {
	op   plan.Operator
	path string
	rel  *plan.Relation
	// fail is the builder's rejection of this operator itself; nil when
	// the operator was built or when an input was not.
	fail *sqlgen.UnsupportedError
}

// compilation is the per-call state of Compile.
type compilation struct {
	*Compiler
	ctx       context.Context
	id        string
	logger    *slog.Logger
	sources   map[int]sqlgen.Source
	nodes     []node
	track     *tracker
	relations []*plan.Relation
}

// Compile rewrites root so that every maximal translatable subtree is
// replaced by a plan.Pushed node. The input plan is never modified.
//
// Untranslatable operators are not errors; they are reported in
// Result.Decisions. The returned error is always a *CompileError.
func (c *Compiler) Compile(ctx context.Context, root plan.Operator) (*Result, error) {
	start := time.Now()
	res, err := c.compile(ctx, root)
	c.metrics.compileSeconds.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.compilationsTotal.WithLabelValues("error").Inc()
	case c.opts.DisablePushdown:
		c.metrics.compilationsTotal.WithLabelValues("disabled").Inc()
	default:
		c.metrics.compilationsTotal.WithLabelValues(res.Status.String()).Inc()
	}
	return res, err
}

func (c *Compiler) compile(ctx context.Context, root plan.Operator) (*Result, error) {
	cp := &compilation{
		Compiler: c,
		ctx:      ctx,
		id:       c.ids.Generate(),
	}
	cp.logger = c.logger.With("compile_id", cp.id)

	if root == nil {
		return nil, configError("", "nil plan")
	}
	if vr := plan.Validate(root); !vr.Valid {
		cp.logger.DebugContext(ctx, "plan rejected", "problems", len(vr.Problems))
		return nil, configError("", "invalid plan: %s", strings.Join(vr.Problems, "; "))
	}

	size := plan.Size(root)
	if c.opts.DisablePushdown {
		cp.logger.InfoContext(ctx, "pushdown disabled", "operators", size)
		return cp.unchanged(root, "pushdown disabled"), nil
	}

	if err := cp.resolve(root); err != nil {
		return nil, err
	}

	cp.nodes = make([]node, size)
	cp.track = newTracker(size)
	if err := cp.build(root, 0, "0"); err != nil {
		return nil, err
	}
	out, err := cp.splice(root, 0, "0")
	if err != nil {
		return nil, err
	}

	res := &Result{
		CompileID: cp.id,
		Plan:      out,
		Status:    cp.track.state(0),
		Relations: cp.relations,
		Decisions: cp.decisions(),
	}
	if len(cp.relations) == 0 {
		res.Plan = root
	}
	cp.logger.InfoContext(ctx, "plan compiled",
		"status", res.Status,
		"operators", size,
		"relations", len(res.Relations),
	)
	return res, nil
}

// unchanged reports every operator as NotPushed.
func (cp *compilation) unchanged(root plan.Operator, reason string) *Result {
	res := &Result{CompileID: cp.id, Plan: root, Status: NotPushed}
	plan.Walk(root, func(op plan.Operator, id int, path string) bool {
		res.Decisions = append(res.Decisions, Decision{
			ID:       id,
			Path:     path,
			Operator: op.String(),
			State:    NotPushed,
			Reason:   reason,
		})
		return true
	})
	return res
}

// resolve binds every scan to its store and checks that the connection
// metadata is consistent across the whole plan.
func (cp *compilation) resolve(root plan.Operator) error {
	cp.sources = make(map[int]sqlgen.Source)
	versions := make(map[string]dialect.Version)
	var err error

	check := func(path string, id conn.Identity, v dialect.Version) error {
		fp := id.Fingerprint()
		if prev, ok := versions[fp]; ok && prev != v {
			return configError(path, "connection %s reports versions %s and %s", id, prev, v)
		}
		versions[fp] = v
		return nil
	}

	plan.Walk(root, func(op plan.Operator, id int, path string) bool {
		if err != nil {
			return false
		}
		switch op := op.(type) {
		case *plan.Scan:
			var src sqlgen.Source
			if src, err = cp.source(op, path); err == nil {
				err = check(path, src.Conn, src.Version)
				cp.sources[id] = src
			}
		case *plan.Pushed:
			if op.Relation.Conn.IsZero() {
				err = configError(path, "pushed relation %s has no connection", op.Relation.ID)
				return false
			}
			err = check(path, op.Relation.Conn, op.Relation.Version)
		}
		return true
	})
	return err
}

func (cp *compilation) source(s *plan.Scan, path string) (sqlgen.Source, error) {
	b, ok := cp.catalog.Lookup(s.Table)
	if !ok {
		return sqlgen.Source{}, configError(path, "unknown table %s", s.Table)
	}
	if b.Conn.IsZero() {
		return sqlgen.Source{}, configError(path, "table %s has no connection", s.Table)
	}
	v := b.Version
	if v.IsZero() {
		v = cp.opts.DefaultVersion
	}
	if v.IsZero() {
		return sqlgen.Source{}, configError(path, "no store version known for connection %q", b.Connection)
	}
	for _, c := range s.Columns {
		i := b.Columns.Index(c.Name)
		if i < 0 {
			return sqlgen.Source{}, configError(path, "table %s has no column %q", s.Table, c.Name)
		}
		if b.Columns[i].Type != c.Type {
			return sqlgen.Source{}, configError(path, "column %s.%s has type %s, catalog says %s", s.Table, c.Name, c.Type, b.Columns[i].Type)
		}
	}
	return sqlgen.Source{Conn: b.Conn, Version: v}, nil
}

// build translates op's subtree bottom-up, recording a relation for every
// operator that could be built.
func (cp *compilation) build(op plan.Operator, id int, path string) error {
	if err := cp.track.begin(id, path); err != nil {
		return err
	}
	cp.nodes[id] = node{op: op, path: path}

	children := op.Children()
	ids := plan.ChildIDs(op, id)
	inputs := make([]*plan.Relation, len(children))
	ready := true
	for i, child := range children {
		if err := cp.build(child, ids[i], plan.ChildPath(path, i)); err != nil {
			return err
		}
		inputs[i] = cp.nodes[ids[i]].rel
		if inputs[i] == nil {
			ready = false
		}
	}
	if !ready {
		return nil
	}

	var (
		rel *plan.Relation
		err error
	)
	if s, ok := op.(*plan.Scan); ok {
		rel, err = cp.builder.Scan(s, cp.sources[id])
	} else {
		rel, err = cp.builder.Build(op, id, inputs)
	}
	if err == nil {
		cp.nodes[id].rel = rel
		return nil
	}

	ue, ok := sqlgen.AsUnsupported(err)
	if !ok {
		cp.logger.ErrorContext(cp.ctx, "relation build failed", "path", path, "operator", op.String(), "error", err)
		return internalError(path, err)
	}
	cp.nodes[id].fail = ue
	cp.metrics.unsupportedTotal.WithLabelValues(string(ue.Kind)).Inc()
	if ue.Kind == sqlgen.KindAlias {
		cp.metrics.inconsistenciesTotal.Inc()
		cp.logger.WarnContext(cp.ctx, "alias collision, operator left on host",
			"path", path,
			"operator", op.String(),
			"reason", ue.Reason,
		)
		return nil
	}
	cp.logger.DebugContext(cp.ctx, "operator left on host",
		"path", path,
		"operator", op.String(),
		"kind", ue.Kind,
		"reason", ue.Reason,
	)
	return nil
}

// splice replaces the highest built operator of each branch with a Pushed
// node.
func (cp *compilation) splice(op plan.Operator, id int, path string) (plan.Operator, error) {
	n := cp.nodes[id]
	if n.rel != nil && !cp.keepSortOnHost(op, id) {
		rel := readmode.Annotate(n.rel, cp.opts.EnableParallelRead)
		cp.relations = append(cp.relations, rel)
		if err := cp.markPushed(op, id); err != nil {
			return nil, err
		}
		cp.logger.DebugContext(cp.ctx, "subtree pushed",
			"path", path,
			"relation", rel.ID,
			"read_mode", rel.ReadMode,
		)
		return &plan.Pushed{Relation: rel}, nil
	}

	children := op.Children()
	ids := plan.ChildIDs(op, id)
	out := make([]plan.Operator, len(children))
	pushedBelow := false
	for i, child := range children {
		c, err := cp.splice(child, ids[i], plan.ChildPath(path, i))
		if err != nil {
			return nil, err
		}
		out[i] = c
		if cp.track.state(ids[i]) != NotPushed {
			pushedBelow = true
		}
	}

	state := NotPushed
	if pushedBelow {
		state = PartiallyPushed
	}
	if err := cp.track.finish(id, state); err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return op, nil
	}
	return plan.WithChildren(op, out), nil
}

// keepSortOnHost reports whether a Sort that could be pushed as the top
// of its relation should instead run on the host, so that its input can
// still be read in parallel.
func (cp *compilation) keepSortOnHost(op plan.Operator, id int) bool {
	if _, ok := op.(*plan.Sort); !ok || !cp.opts.EnableParallelRead {
		return false
	}
	child := cp.nodes[id+1].rel
	return child != nil && readmode.Resolve(child.Props, true) == plan.ReadParallel
}

// markPushed finishes op and its whole subtree as FullyPushed.
func (cp *compilation) markPushed(op plan.Operator, id int) error {
	var err error
	plan.Walk(op, func(_ plan.Operator, sub int, _ string) bool {
		if err == nil {
			err = cp.track.finish(id+sub, FullyPushed)
		}
		return err == nil
	})
	return err
}

func (cp *compilation) decisions() []Decision {
	out := make([]Decision, len(cp.nodes))
	var cover string
	coverEnd := -1
	for id, n := range cp.nodes {
		d := Decision{
			ID:       id,
			Path:     n.path,
			Operator: n.op.String(),
			State:    cp.track.state(id),
		}
		switch d.State {
		case FullyPushed:
			if id > coverEnd {
				cover = cp.relationAt(id)
				coverEnd = id + plan.Size(n.op) - 1
			}
			d.Relation = cover
		case PartiallyPushed:
			d.Reason = cp.reason(id)
		case NotPushed:
			d.Reason = cp.reason(id)
		}
		if n.fail != nil {
			d.Kind = n.fail.Kind
		}
		out[id] = d
	}
	return out
}

// relationAt returns the ID of the relation whose subtree is rooted at id.
func (cp *compilation) relationAt(id int) string {
	if rel := cp.nodes[id].rel; rel != nil {
		return rel.ID
	}
	return ""
}

func (cp *compilation) reason(id int) string {
	n := cp.nodes[id]
	switch {
	case n.fail != nil:
		return n.fail.Error()
	case n.rel != nil:
		if _, ok := n.op.(*plan.Sort); ok {
			return "sort kept on host so its input can be read in parallel"
		}
		return "kept on host"
	}
	var blocked []string
	for i, cid := range plan.ChildIDs(n.op, id) {
		if cp.nodes[cid].rel == nil || cp.track.state(cid) != FullyPushed {
			blocked = append(blocked, fmt.Sprint(i))
		}
	}
	switch len(blocked) {
	case 0:
		return "input not pushed"
	case 1:
		return "input " + blocked[0] + " not pushed"
	}
	return "inputs " + strings.Join(blocked, ", ") + " not pushed"
}

// IsUnsupported reports whether the decision stems from an untranslatable
// construct in the operator itself.
func (d Decision) IsUnsupported() bool {
	return d.Kind != ""
}

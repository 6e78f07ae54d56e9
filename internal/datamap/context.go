package datamap

// execContext is the per-call variable namespace templates resolve
// against. It is owned exclusively by one pipeline execution and is never
// shared or persisted; each webhook attempt works on a clone so a failed
// attempt leaves no residue for the next one.
type execContext struct {
	args       map[string]any
	globalData map[string]any
	metaData   map[string]any

	// Populated only after a webhook succeeds; mutually exclusive,
	// decided by the shape of the parsed body.
	response map[string]any
	array    []any

	// locals holds foreach accumulator strings keyed by output_key.
	locals map[string]any

	// scope is non-nil only while a foreach element is being expanded.
	scope *foreachScope
}

type foreachScope struct {
	element any
	index   int
	count   int
}

func newExecContext(args, globalData, metaData map[string]any) *execContext {
	return &execContext{
		args:       args,
		globalData: globalData,
		metaData:   metaData,
	}
}

// clone produces an independent view sharing the read-only namespaces.
// locals is copied so per-attempt mutations stay private.
func (c *execContext) clone() *execContext {
	out := &execContext{
		args:       c.args,
		globalData: c.globalData,
		metaData:   c.metaData,
		response:   c.response,
		array:      c.array,
	}
	if len(c.locals) > 0 {
		out.locals = make(map[string]any, len(c.locals))
		for k, v := range c.locals {
			out.locals[k] = v
		}
	}
	return out
}

func (c *execContext) setLocal(key string, val any) {
	if c.locals == nil {
		c.locals = make(map[string]any)
	}
	c.locals[key] = val
}

// Root implements template.Context. Fixed namespaces are always
// addressable (a missing key under them expands to empty string); the
// foreach scope names are addressable only while a scope is active, and
// foreach output keys only once set, so templates referencing them
// elsewhere stay visible as literals.
func (c *execContext) Root(name string) (any, bool) {
	switch name {
	case "args":
		return anyMap(c.args), true
	case "global_data":
		return anyMap(c.globalData), true
	case "meta_data":
		return anyMap(c.metaData), true
	case "response":
		return anyMap(c.response), true
	case "array":
		return anySlice(c.array), true
	case "this":
		if c.scope != nil {
			return c.scope.element, true
		}
		return nil, false
	case "foreach_index":
		if c.scope != nil {
			return c.scope.index, true
		}
		return nil, false
	case "foreach_count":
		if c.scope != nil {
			return c.scope.count, true
		}
		return nil, false
	}

	if val, ok := c.locals[name]; ok {
		return val, true
	}
	return nil, false
}

// anyMap and anySlice keep nil namespaces addressable without handing the
// template walker a typed nil.
func anyMap(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

func anySlice(s []any) any {
	if s == nil {
		return nil
	}
	return s
}

// Package convert implements the §4.D conversion pipeline: turning a raw
// decoded record value into its physical representation by dispatching on
// a channel conversion block's ten types. It mirrors the teacher's
// datatype-conversion layer (internal/core/datatype.go in the source
// repo) in spirit: small, table-driven per-type converters fed by already
// resolved core.Conversion structs, with no I/O of its own beyond the one
// text lookup a value/range-to-text (or text-keyed) conversion needs.
// Apply handles channels whose decoded raw value is numeric; ApplyText
// handles channels whose decoded raw value is already text.
package convert

import (
	"fmt"
	"math"

	"github.com/mdf4go/mdf4/internal/core"
	"github.com/mdf4go/mdf4/internal/errs"
	"github.com/mdf4go/mdf4/internal/utils"
)

// Result is the outcome of applying a conversion chain: either a physical
// number or physical text, per §4.D's chain-termination rule (a chain
// terminates at the first string-producing stage).
type Result struct {
	Number float64
	Text   string
	IsText bool
}

// Apply converts raw using chain, the channel's resolved conversion chain as
// produced by core.Walk (chain[0] is the channel's direct CC; any further
// entries are nested CCs referenced by value-range-to-value). r is used only
// to resolve TX/MD text links that a text-producing conversion references
// lazily; pass nil if the chain is known not to need it (ConversionIdentity,
// ConversionLinear, ConversionRational never do).
func Apply(r utils.ReaderAt, chain []*core.Conversion, raw float64) (Result, error) {
	if len(chain) == 0 {
		return Result{Number: raw}, nil
	}
	return applyOne(r, chain[0], raw)
}

func applyOne(r utils.ReaderAt, cc *core.Conversion, raw float64) (Result, error) {
	switch cc.Type {
	case core.ConversionIdentity:
		return Result{Number: raw}, nil

	case core.ConversionLinear:
		return applyLinear(cc, raw)

	case core.ConversionRational:
		return applyRational(cc, raw)

	case core.ConversionAlgebraic:
		return applyAlgebraic(cc, raw)

	case core.ConversionValueToValue:
		return applyValueToValue(cc, raw)

	case core.ConversionValueRangeToValue:
		return applyValueRangeToValue(r, cc, raw)

	case core.ConversionValueToText:
		return applyValueToText(r, cc, raw)

	case core.ConversionValueRangeToText:
		return applyValueRangeToText(r, cc, raw)

	case core.ConversionTextToValue, core.ConversionTextToText:
		return Result{}, &errs.UnsupportedFeatureError{What: "text-keyed conversions (text_to_value/text_to_text) require a text input; use ApplyText"}

	default:
		return Result{}, &errs.UnsupportedFeatureError{What: fmt.Sprintf("conversion type %d", cc.Type)}
	}
}

func applyLinear(cc *core.Conversion, raw float64) (Result, error) {
	if len(cc.Params) < 2 {
		return Result{}, &errs.ConversionError{Context: "linear conversion", Cause: fmt.Errorf("need 2 parameters, got %d", len(cc.Params))}
	}
	b, a := cc.Params[0], cc.Params[1]
	return Result{Number: b + raw*a}, nil
}

func applyRational(cc *core.Conversion, raw float64) (Result, error) {
	if len(cc.Params) < 6 {
		return Result{}, &errs.ConversionError{Context: "rational conversion", Cause: fmt.Errorf("need 6 parameters, got %d", len(cc.Params))}
	}
	p := cc.Params
	x := raw
	num := p[0]*x*x + p[1]*x + p[2]
	den := p[3]*x*x + p[4]*x + p[5]
	if den == 0 {
		return Result{}, &errs.ConversionError{Context: "rational conversion", Cause: fmt.Errorf("zero denominator at x=%g", x)}
	}
	return Result{Number: num / den}, nil
}

func applyAlgebraic(cc *core.Conversion, raw float64) (Result, error) {
	expr, err := ParseFormula(cc.Text)
	if err != nil {
		return Result{}, &errs.ConversionError{Context: "algebraic conversion", Cause: err}
	}
	v, err := expr.Eval(raw)
	if err != nil {
		return Result{}, &errs.ConversionError{Context: "algebraic conversion", Cause: err}
	}
	return Result{Number: v}, nil
}

// applyValueToValue implements the type-4 value→value table: exact match
// on key, bitwise-equal comparison with NaN never matching, falling back
// to the trailing default entry (val=[k0,v0,k1,v1,…,default]).
func applyValueToValue(cc *core.Conversion, raw float64) (Result, error) {
	params := cc.Params
	if len(params) == 0 {
		return Result{Number: math.NaN()}, nil
	}
	if len(params)%2 == 0 {
		return Result{}, &errs.ConversionError{Context: "value-to-value conversion", Cause: fmt.Errorf("expected an odd parameter count (key/value pairs plus a trailing default), got %d", len(params))}
	}
	n := (len(params) - 1) / 2
	for i := 0; i < n; i++ {
		if numericKeyMatches(raw, params[i*2]) {
			return Result{Number: params[i*2+1]}, nil
		}
	}
	return Result{Number: params[len(params)-1]}, nil
}

// numericKeyMatches implements the §4.D tie-break rule: bitwise equality
// for finite doubles, NaN never matches anything (including itself).
func numericKeyMatches(raw, key float64) bool {
	if math.IsNaN(raw) || math.IsNaN(key) {
		return false
	}
	return math.Float64bits(raw) == math.Float64bits(key)
}

// applyValueRangeToValue implements the type-5 value-range→value table:
// the first interval [min,max] (inclusive) containing raw wins, falling
// back to the trailing default entry (val=[lo0,hi0,v0,…,default]).
func applyValueRangeToValue(r utils.ReaderAt, cc *core.Conversion, raw float64) (Result, error) {
	triples, defaultVal, err := valueRangeTriples(cc.Params)
	if err != nil {
		return Result{}, &errs.ConversionError{Context: "value-range-to-value conversion", Cause: err}
	}
	for _, t := range triples {
		if raw >= t.min && raw <= t.max {
			return Result{Number: t.value}, nil
		}
	}
	return Result{Number: defaultVal}, nil
}

type rangeTriple struct{ min, max, value float64 }

func valueRangeTriples(params []float64) ([]rangeTriple, float64, error) {
	if len(params) < 1 || (len(params)-1)%3 != 0 {
		return nil, 0, fmt.Errorf("malformed value-range parameter list: %d entries", len(params))
	}
	n := (len(params) - 1) / 3
	triples := make([]rangeTriple, n)
	for i := 0; i < n; i++ {
		triples[i] = rangeTriple{min: params[i*3], max: params[i*3+1], value: params[i*3+2]}
	}
	return triples, params[len(params)-1], nil
}

// applyValueToText looks up raw in cc's keyed table of refs (TX/MD links,
// one per Params entry) and falls back to the last ref as the default text.
func applyValueToText(r utils.ReaderAt, cc *core.Conversion, raw float64) (Result, error) {
	if len(cc.Refs) == 0 {
		return Result{}, &errs.ConversionError{Context: "value-to-text conversion", Cause: fmt.Errorf("no text references")}
	}
	for i, key := range cc.Params {
		if numericKeyMatches(raw, key) && i < len(cc.Refs) {
			text, err := resolveRefText(r, cc.Refs[i])
			if err != nil {
				return Result{}, err
			}
			return Result{Text: text, IsText: true}, nil
		}
	}
	text, err := resolveRefText(r, cc.Refs[len(cc.Refs)-1])
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, IsText: true}, nil
}

// applyValueRangeToText is applyValueToText's range-keyed sibling: Params
// holds (min, max) pairs, one per ref, with a trailing default ref.
func applyValueRangeToText(r utils.ReaderAt, cc *core.Conversion, raw float64) (Result, error) {
	if len(cc.Params)%2 != 0 {
		return Result{}, &errs.ConversionError{Context: "value-range-to-text conversion", Cause: fmt.Errorf("odd parameter count %d", len(cc.Params))}
	}
	n := len(cc.Params) / 2
	for i := 0; i < n && i < len(cc.Refs); i++ {
		lo, hi := cc.Params[i*2], cc.Params[i*2+1]
		if raw >= lo && raw <= hi {
			text, err := resolveRefText(r, cc.Refs[i])
			if err != nil {
				return Result{}, err
			}
			return Result{Text: text, IsText: true}, nil
		}
	}
	if len(cc.Refs) == 0 {
		return Result{}, &errs.ConversionError{Context: "value-range-to-text conversion", Cause: fmt.Errorf("no default text reference")}
	}
	text, err := resolveRefText(r, cc.Refs[len(cc.Refs)-1])
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, IsText: true}, nil
}

func resolveRefText(r utils.ReaderAt, link uint64) (string, error) {
	if link == 0 {
		return "", nil // absent text link
	}
	if r == nil {
		return "", &errs.InvalidStateError{Context: "text-producing conversion requires a reader but none was supplied"}
	}
	text, _, err := core.ReadText(r, link)
	if err != nil {
		return "", err
	}
	return text, nil
}

// ApplyText converts an already-decoded string value using chain (types 9
// Text→Value and 10 Text→Text read text input directly, identity passes the
// text through; any other type is rejected since it expects a numeric raw
// value).
func ApplyText(r utils.ReaderAt, chain []*core.Conversion, raw string) (Result, error) {
	if len(chain) == 0 {
		return Result{Text: raw, IsText: true}, nil
	}
	return applyTextOne(r, chain[0], raw)
}

func applyTextOne(r utils.ReaderAt, cc *core.Conversion, raw string) (Result, error) {
	switch cc.Type {
	case core.ConversionIdentity:
		return Result{Text: raw, IsText: true}, nil

	case core.ConversionTextToValue:
		return applyTextToValue(r, cc, raw)

	case core.ConversionTextToText:
		return applyTextToText(r, cc, raw)

	default:
		return Result{}, &errs.UnsupportedFeatureError{What: fmt.Sprintf("conversion type %d does not accept text input", cc.Type)}
	}
}

// applyTextToValue implements the type-9 text→value table: val=[v0..vN-1,
// default], ref=[t0..tN-1]; the first ref whose resolved text equals raw
// wins, yielding the value at the same index, else the trailing default.
func applyTextToValue(r utils.ReaderAt, cc *core.Conversion, raw string) (Result, error) {
	if len(cc.Params) == 0 {
		return Result{}, &errs.ConversionError{Context: "text-to-value conversion", Cause: fmt.Errorf("no values")}
	}
	n := len(cc.Params) - 1
	for i := 0; i < n && i < len(cc.Refs); i++ {
		text, err := resolveRefText(r, cc.Refs[i])
		if err != nil {
			return Result{}, err
		}
		if text == raw {
			return Result{Number: cc.Params[i]}, nil
		}
	}
	return Result{Number: cc.Params[len(cc.Params)-1]}, nil
}

// applyTextToText implements the type-10 text→text table: val=[],
// ref=[k0,v0,k1,v1,…,default]; the first key text matching raw wins,
// yielding the following value text, else the trailing default text.
func applyTextToText(r utils.ReaderAt, cc *core.Conversion, raw string) (Result, error) {
	if len(cc.Refs) == 0 {
		return Result{}, &errs.ConversionError{Context: "text-to-text conversion", Cause: fmt.Errorf("no references")}
	}
	if len(cc.Refs)%2 == 0 {
		return Result{}, &errs.ConversionError{Context: "text-to-text conversion", Cause: fmt.Errorf("expected an odd reference count (key/value text pairs plus a trailing default), got %d", len(cc.Refs))}
	}
	n := (len(cc.Refs) - 1) / 2
	for i := 0; i < n; i++ {
		key, err := resolveRefText(r, cc.Refs[i*2])
		if err != nil {
			return Result{}, err
		}
		if key == raw {
			value, err := resolveRefText(r, cc.Refs[i*2+1])
			if err != nil {
				return Result{}, err
			}
			return Result{Text: value, IsText: true}, nil
		}
	}
	defaultText, err := resolveRefText(r, cc.Refs[len(cc.Refs)-1])
	if err != nil {
		return Result{}, err
	}
	return Result{Text: defaultText, IsText: true}, nil
}

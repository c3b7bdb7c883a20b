package ddbsdk

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
)

// withEntry returns a copy of m with k set to v. m is never modified.
func withEntry[K comparable, V any](m map[K]V, k K, v V) map[K]V {
	out := make(map[K]V, len(m)+1)
	maps.Copy(out, m)
	out[k] = v
	return out
}

// merge layers the maps left to right; later layers win on collision.
// The result is nil when every layer is empty.
func merge[K comparable, V any](layers ...map[K]V) map[K]V {
	var out map[K]V
	for _, l := range layers {
		if len(l) == 0 {
			continue
		}
		if out == nil {
			out = make(map[K]V, len(l))
		}
		maps.Copy(out, l)
	}
	return out
}

// projection renders attrs as a projection expression with generated name
// placeholders. A nil result means no projection.
func projection(attrs []string) (*string, map[string]string, error) {
	if len(attrs) == 0 {
		return nil, nil, nil
	}
	proj := expression.NamesList(expression.Name(attrs[0]))
	for _, attr := range attrs[1:] {
		proj = proj.AddNames(expression.Name(attr))
	}
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build projection expression: %w", err)
	}
	return expr.Projection(), expr.Names(), nil
}

// resolveProjection prefers attrs over a raw projection expression. Caller
// names are extended with the generated placeholders.
func resolveProjection(raw *string, attrs []string, names map[string]string) (*string, map[string]string, error) {
	proj, projNames, err := projection(attrs)
	if err != nil {
		return nil, nil, err
	}
	if proj == nil {
		return raw, merge(names), nil
	}
	return proj, merge(names, projNames), nil
}

func debugRequest(ctx context.Context, op string, table *string) *zerolog.Event {
	return zerolog.Ctx(ctx).Debug().Str("op", op).Str("table", aws.ToString(table))
}

// strField adds key to e only when v is set.
func strField(e *zerolog.Event, key string, v *string) *zerolog.Event {
	if v == nil {
		return e
	}
	return e.Str(key, *v)
}

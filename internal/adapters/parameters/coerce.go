package parameters

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var bigIntType = reflect.TypeOf(&big.Int{})

// CoerceArgs converts values into the Go types go-ethereum expects when
// packing inputs. Strings are parsed according to the input type, values that
// already have the right type pass through.
func CoerceArgs(inputs abi.Arguments, values []any) ([]any, error) {
	if len(inputs) != len(values) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(values))
	}
	out := make([]any, len(values))
	for i, input := range inputs {
		v, err := Coerce(input.Type, values[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, input.Type.String(), err)
		}
		out[i] = v
	}
	return out, nil
}

// Coerce converts a single value to the Go representation of t
func Coerce(t abi.Type, value any) (any, error) {
	target := t.GetType()
	if rv := reflect.ValueOf(value); rv.IsValid() && rv.Type().AssignableTo(target) {
		return value, nil
	}

	var s string
	switch v := value.(type) {
	case string:
		s = strings.TrimSpace(v)
	case common.Address:
		s = v.Hex()
	case nil:
		return nil, fmt.Errorf("missing value")
	default:
		s = fmt.Sprint(v)
	}

	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil

	case abi.BoolTy:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q", s)
		}
		return b, nil

	case abi.StringTy:
		return s, nil

	case abi.UintTy, abi.IntTy:
		return coerceInteger(t, target, s)

	case abi.BytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes %q: %w", s, err)
		}
		return b, nil

	case abi.FixedBytesTy:
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes%d %q: %w", t.Size, s, err)
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("value %q is longer than bytes%d", s, t.Size)
		}
		arr := reflect.New(target).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	default:
		return nil, fmt.Errorf("unsupported type %s", t.String())
	}
}

func coerceInteger(t abi.Type, target reflect.Type, s string) (any, error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}

	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for unsigned type", s)
		}
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("value %s overflows uint%d", s, t.Size)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("value %s overflows int%d", s, t.Size)
		}
	}

	if target == bigIntType {
		return n, nil
	}
	v := reflect.New(target).Elem()
	if t.T == abi.UintTy {
		v.SetUint(n.Uint64())
	} else {
		v.SetInt(n.Int64())
	}
	return v.Interface(), nil
}

package reflection

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leapmapper/pkg/core"
)

// DecodeProperties sets the fields of out, a pointer to a struct, from props.
// Fields are matched through their `mapstructure` tags; text is converted to
// the field type (numbers, booleans, durations, comma-separated slices).
// Keys with no matching field are ignored.
func DecodeProperties(props core.Properties, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(props.AsMap()); err != nil {
		return fmt.Errorf("invalid properties for %T: %w", out, err)
	}
	return nil
}

package mapper

import (
	"fmt"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
)

func encodeJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return datatypes.JSON(b), nil
}

// decodeJSON leaves out untouched when the column is empty or unreadable.
// Columns are written by encodeJSON only, so a decode failure means a row
// edited by hand.
func decodeJSON(raw datatypes.JSON, out any) {
	if len(raw) == 0 {
		return
	}
	_ = sonic.Unmarshal(raw, out)
}

package server

import (
	"strings"
	"testing"
)

func TestExtractParams(t *testing.T) {
	t.Run("uri tag", func(t *testing.T) {
		type params struct {
			DocID string `uri:"doc_id,required"`
		}

		got, err := ExtractParams[params](map[string]string{"doc_id": "plan.md"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.DocID != "plan.md" {
			t.Errorf("DocID = %q, want %q", got.DocID, "plan.md")
		}
	})

	t.Run("json tag fallback", func(t *testing.T) {
		type params struct {
			Page    int    `json:"page,omitempty"`
			Ignored string `json:"-"`
		}

		got, err := ExtractParams[params](map[string]string{"page": "3", "-": "x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Page != 3 {
			t.Errorf("Page = %d, want 3", got.Page)
		}
		if got.Ignored != "" {
			t.Errorf("Ignored = %q, want empty", got.Ignored)
		}
	})

	t.Run("typed values", func(t *testing.T) {
		type params struct {
			Count uint8 `uri:"count"`
			Debug bool  `uri:"debug"`
		}

		got, err := ExtractParams[params](map[string]string{"count": "200", "debug": "true"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Count != 200 || !got.Debug {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("optional missing", func(t *testing.T) {
		type params struct {
			DocID string `uri:"doc_id"`
		}

		got, err := ExtractParams[params](map[string]string{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.DocID != "" {
			t.Errorf("DocID = %q, want empty", got.DocID)
		}
	})

	errorCases := []struct {
		name    string
		extract func() error
		want    string
	}{
		{
			name: "required missing",
			extract: func() error {
				type params struct {
					DocID string `uri:"doc_id,required"`
				}
				_, err := ExtractParams[params](map[string]string{})
				return err
			},
			want: `missing parameter "doc_id"`,
		},
		{
			name: "overflow",
			extract: func() error {
				type params struct {
					Count int8 `uri:"count"`
				}
				_, err := ExtractParams[params](map[string]string{"count": "300"})
				return err
			},
			want: "invalid int",
		},
		{
			name: "bad bool",
			extract: func() error {
				type params struct {
					On bool `uri:"on"`
				}
				_, err := ExtractParams[params](map[string]string{"on": "maybe"})
				return err
			},
			want: "invalid bool",
		},
		{
			name: "unsupported kind",
			extract: func() error {
				type params struct {
					Tags []string `uri:"tags"`
				}
				_, err := ExtractParams[params](map[string]string{"tags": "a"})
				return err
			},
			want: "unsupported type",
		},
		{
			name: "not a struct",
			extract: func() error {
				_, err := ExtractParams[string](map[string]string{})
				return err
			},
			want: "must be a struct",
		},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.extract()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

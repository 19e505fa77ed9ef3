package model

import (
	"testing"

	"github.com/vinli0921/product-recommender-system/core"
)

func TestParseEncoderConfig(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantErr  bool
		wantCode string
	}{
		{
			name: "valid with explicit feature lists",
			data: `{
				"users_num_numerical": 2,
				"users_num_categorical": 1,
				"numerical_features": ["age", "signup_year"],
				"categorical_features": ["gender"]
			}`,
		},
		{
			name: "valid with default feature lists",
			data: `{"users_num_numerical": 1, "users_num_categorical": 2}`,
		},
		{
			name:     "missing users_num_numerical",
			data:     `{"users_num_categorical": 2}`,
			wantErr:  true,
			wantCode: core.ErrorCodeInvalidArtifact,
		},
		{
			name:     "missing users_num_categorical",
			data:     `{"users_num_numerical": 1}`,
			wantErr:  true,
			wantCode: core.ErrorCodeInvalidArtifact,
		},
		{
			name:     "negative count",
			data:     `{"users_num_numerical": -1, "users_num_categorical": 2}`,
			wantErr:  true,
			wantCode: core.ErrorCodeInvalidArtifact,
		},
		{
			name: "feature list length mismatch",
			data: `{
				"users_num_numerical": 3,
				"users_num_categorical": 2,
				"numerical_features": ["age"]
			}`,
			wantErr:  true,
			wantCode: core.ErrorCodeInvalidArtifact,
		},
		{
			name:     "not json",
			data:     `version: 1`,
			wantErr:  true,
			wantCode: core.ErrorCodeInvalidArtifact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseEncoderConfig([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if de := core.GetDomainError(err); de == nil || de.Code != tt.wantCode {
					t.Errorf("error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.InputDim() != cfg.UsersNumNumerical+cfg.UsersNumCategorical {
				t.Errorf("InputDim() = %d", cfg.InputDim())
			}
			if len(cfg.NumericalFeatures) != cfg.UsersNumNumerical {
				t.Errorf("numerical features %v mismatch count %d", cfg.NumericalFeatures, cfg.UsersNumNumerical)
			}
			if len(cfg.CategoricalFeatures) != cfg.UsersNumCategorical {
				t.Errorf("categorical features %v mismatch count %d", cfg.CategoricalFeatures, cfg.UsersNumCategorical)
			}
		})
	}
}

func TestParseEncoderConfig_DefaultOrder(t *testing.T) {
	cfg, err := ParseEncoderConfig([]byte(`{"users_num_numerical": 1, "users_num_categorical": 2}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NumericalFeatures[0] != "age" {
		t.Errorf("default numerical order = %v", cfg.NumericalFeatures)
	}
	if cfg.CategoricalFeatures[0] != "gender" || cfg.CategoricalFeatures[1] != "preferences" {
		t.Errorf("default categorical order = %v", cfg.CategoricalFeatures)
	}
}

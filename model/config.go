package model

import (
	"encoding/json"

	"github.com/vinli0921/product-recommender-system/core"
)

// EncoderConfig 是用户编码器的配置产物（user-encoder-config-{version}.json）。
//
// 由训练管道随权重一起导出，描述模型的输入结构：
//   - users_num_numerical / users_num_categorical 是两个必填的特征数量字段
//   - numerical_features / categorical_features 定义确定性的特征顺序，
//     缺省时退回内置顺序（age；gender、preferences）
//   - categorical_vocab 定义类别特征的标签编码表，缺省的特征走哈希编码
type EncoderConfig struct {
	UsersNumNumerical   int `json:"users_num_numerical"`
	UsersNumCategorical int `json:"users_num_categorical"`

	// NumericalFeatures 数值特征顺序（可选）
	NumericalFeatures []string `json:"numerical_features,omitempty"`

	// CategoricalFeatures 类别特征顺序（可选）
	CategoricalFeatures []string `json:"categorical_features,omitempty"`

	// CategoricalVocab 类别特征的取值表：特征名 -> 有序类别列表（可选）
	CategoricalVocab map[string][]string `json:"categorical_vocab,omitempty"`
}

// 内置特征顺序（配置未显式声明时使用）
var (
	defaultNumericalFeatures   = []string{"age"}
	defaultCategoricalFeatures = []string{"gender", "preferences"}
)

// ParseEncoderConfig 解析编码器配置。
// 两个特征数量字段缺失或非正时返回 INVALID_ARTIFACT：
// 该版本的产物不完整，禁止继续加载。
func ParseEncoderConfig(data []byte) (*EncoderConfig, error) {
	var cfg EncoderConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeInvalidArtifact,
			"model: parse encoder config", err)
	}

	if cfg.UsersNumNumerical <= 0 {
		return nil, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidArtifact,
			"model: encoder config missing users_num_numerical")
	}
	if cfg.UsersNumCategorical <= 0 {
		return nil, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidArtifact,
			"model: encoder config missing users_num_categorical")
	}

	if len(cfg.NumericalFeatures) == 0 {
		cfg.NumericalFeatures = defaultNumericalFeatures
	}
	if len(cfg.CategoricalFeatures) == 0 {
		cfg.CategoricalFeatures = defaultCategoricalFeatures
	}

	// 特征顺序表与数量字段必须一致，否则输入张量的构造是不确定的
	if len(cfg.NumericalFeatures) != cfg.UsersNumNumerical {
		return nil, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidArtifact,
			"model: numerical_features length mismatches users_num_numerical")
	}
	if len(cfg.CategoricalFeatures) != cfg.UsersNumCategorical {
		return nil, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidArtifact,
			"model: categorical_features length mismatches users_num_categorical")
	}

	return &cfg, nil
}

// InputDim 返回模型输入向量的维度。
func (c *EncoderConfig) InputDim() int {
	return c.UsersNumNumerical + c.UsersNumCategorical
}

package model

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/vinli0921/product-recommender-system/core"
)

// 本文件负责把 User 的数值/类别字段转成模型期望的输入张量。
//
// 确定性要求：同一个配置 + 同一个用户，任何时刻构造出的向量必须
// 逐位相同（特征顺序由配置声明，编码规则与时间无关），否则线上
// Embedding 与离线训练分布不一致。

// hashBuckets 是无 vocab 类别特征的哈希桶数。
// 必须与训练侧保持一致，改动即换模型版本。
const hashBuckets = 1000

// UserFeatures 按配置声明的顺序构造用户输入向量：
// 先是全部数值特征，再是全部类别特征（标签编码或哈希编码）。
// 配置声明了未知特征名时返回错误（产物与代码不匹配，必须显式暴露）。
func UserFeatures(user core.User, cfg *EncoderConfig) ([]float64, error) {
	out := make([]float64, 0, cfg.InputDim())

	for _, name := range cfg.NumericalFeatures {
		v, err := numericalFeature(user, name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	for _, name := range cfg.CategoricalFeatures {
		raw, err := categoricalFeature(user, name)
		if err != nil {
			return nil, err
		}
		out = append(out, encodeCategorical(cfg, name, raw))
	}

	return out, nil
}

// numericalFeature 提取单个数值特征。
func numericalFeature(user core.User, name string) (float64, error) {
	switch name {
	case "age":
		return float64(user.Age), nil
	case "signup_year":
		return float64(user.SignupDate.Year()), nil
	case "signup_month":
		return float64(int(user.SignupDate.Month())), nil
	case "signup_day":
		return float64(user.SignupDate.Day()), nil
	default:
		return 0, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidArtifact,
			fmt.Sprintf("model: unknown numerical feature %q", name))
	}
}

// categoricalFeature 提取单个类别特征的原始取值。
func categoricalFeature(user core.User, name string) (string, error) {
	switch name {
	case "gender":
		return user.Gender, nil
	case "preferences":
		// 偏好是自由文本标签列表；归一化后整体作为一个类别值编码，
		// 标签顺序不影响结果
		return normalizePreferences(user.Preferences), nil
	default:
		return "", core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidArtifact,
			fmt.Sprintf("model: unknown categorical feature %q", name))
	}
}

// encodeCategorical 对类别取值做编码：
//   - 配置里有 vocab 的特征走标签编码（未知类别编码为 0）
//   - 没有 vocab 的特征走 FNV 哈希编码（固定桶数）
func encodeCategorical(cfg *EncoderConfig, name, value string) float64 {
	if vocab, ok := cfg.CategoricalVocab[name]; ok {
		for i, cat := range vocab {
			if cat == value {
				return float64(i + 1)
			}
		}
		return 0 // 未知类别
	}

	h := fnv.New32a()
	h.Write([]byte(value))
	return float64(h.Sum32() % hashBuckets)
}

// normalizePreferences 把偏好文本归一化为顺序无关的规范形式：
// 逗号切分、去空白、转小写、字典序排序后重新拼接。
func normalizePreferences(prefs string) string {
	parts := strings.Split(prefs, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tag := strings.ToLower(strings.TrimSpace(p))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	// 插入排序足够：标签数通常个位数
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j] < tags[j-1]; j-- {
			tags[j], tags[j-1] = tags[j-1], tags[j]
		}
	}
	return strings.Join(tags, ",")
}

// Package arena 实现语音对比的核心逻辑：Elo 评分、对局选择、投票记录与评分重算。
package arena

import "math"

// KFactor 单次对比的最大评分变化量。
const KFactor = 32.0

// UpdateRatings 根据对比结果计算两侧的新评分。
// s1 是左侧（第一方）的得分：1 胜、0 负、0.5 平。
// 两侧期望值独立计算后分别四舍五入到两位小数，总和可能出现 0.01 级别的偏差，这是允许的。
func UpdateRatings(r1, r2, s1 float64) (float64, float64) {
	expected1 := 1 / (1 + math.Pow(10, (r2-r1)/400))
	expected2 := 1 / (1 + math.Pow(10, (r1-r2)/400))

	n1 := r1 + KFactor*(s1-expected1)
	n2 := r2 + KFactor*((1-s1)-expected2)
	return round2(n1), round2(n2)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

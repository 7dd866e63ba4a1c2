package arena

// TieSentinel 是请求中表示平局的 winnerId 取值。
const TieSentinel = "tie"

// Outcome 一次对比的结果，相对于记录中的 A/B 两侧。
type Outcome int

const (
	OutcomeTie Outcome = iota
	OutcomeLeft
	OutcomeRight
)

// ParseOutcome 将请求中的 winnerId 转换为 Outcome。
// nil 或 "tie" 表示平局；其他取值必须等于两侧之一。
func ParseOutcome(voiceAID, voiceBID string, winnerID *string) (Outcome, error) {
	if winnerID == nil || *winnerID == "" || *winnerID == TieSentinel {
		return OutcomeTie, nil
	}
	switch *winnerID {
	case voiceAID:
		return OutcomeLeft, nil
	case voiceBID:
		return OutcomeRight, nil
	}
	return OutcomeTie, invalid("winnerId", "%q 不是本场对比的任何一方", *winnerID)
}

// Score 返回 A 侧得分。
func (o Outcome) Score() float64 {
	switch o {
	case OutcomeLeft:
		return 1
	case OutcomeRight:
		return 0
	default:
		return 0.5
	}
}

// WinnerID 返回获胜方 ID，平局返回 nil。
func (o Outcome) WinnerID(voiceAID, voiceBID string) *string {
	switch o {
	case OutcomeLeft:
		return &voiceAID
	case OutcomeRight:
		return &voiceBID
	}
	return nil
}

func (o Outcome) String() string {
	switch o {
	case OutcomeLeft:
		return "left"
	case OutcomeRight:
		return "right"
	default:
		return "tie"
	}
}

// outcomeOf 从持久化的对比记录还原 Outcome。
func outcomeOf(voiceAID, voiceBID string, winnerID *string) Outcome {
	o, err := ParseOutcome(voiceAID, voiceBID, winnerID)
	if err != nil {
		return OutcomeTie
	}
	return o
}

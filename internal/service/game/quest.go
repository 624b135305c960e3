package game

const (
	MIN_PLAYERS         = 5
	MAX_PLAYERS         = 10
	DEFAULT_MAX_PLAYERS = MIN_PLAYERS

	TOTAL_ROUNDS = 5
	// 任一阵营先拿到 3 次任务结果即分出胜负
	WINNING_SCORE = 3
	// 同一回合连续被否决的提名达到该数量时坏人直接获胜
	MAX_REJECTIONS = 5
)

type Quest struct {
	RequiredPlayers int
	// 让任务失败所需的失败票数
	FailsRequired int
}

var questTable = map[int][TOTAL_ROUNDS]Quest{
	5:  {{2, 1}, {3, 1}, {2, 1}, {3, 1}, {3, 1}},
	6:  {{2, 1}, {3, 1}, {4, 1}, {3, 1}, {4, 1}},
	7:  {{2, 1}, {3, 1}, {3, 1}, {4, 2}, {4, 1}},
	8:  {{3, 1}, {4, 1}, {4, 1}, {5, 2}, {5, 1}},
	9:  {{3, 1}, {4, 1}, {4, 1}, {5, 2}, {5, 1}},
	10: {{3, 1}, {4, 1}, {4, 1}, {5, 2}, {5, 1}},
}

var evilCounts = map[int]int{
	5:  2,
	6:  2,
	7:  3,
	8:  3,
	9:  3,
	10: 4,
}

func QuestFor(playerCount, roundNumber int) (Quest, error) {
	quests, ok := questTable[playerCount]
	if !ok {
		return Quest{}, Invalid("人数必须在 5 到 10 之间")
	}

	if roundNumber < 1 || roundNumber > TOTAL_ROUNDS {
		return Quest{}, Invalid("回合编号超出范围")
	}

	return quests[roundNumber-1], nil
}

func EvilCount(playerCount int) int {
	return evilCounts[playerCount]
}

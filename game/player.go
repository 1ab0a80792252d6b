package game

import "fmt"

type playerState struct {
	nickname string
	points   int
	turns    int
}

func newPlayerState(nickname string) *playerState {
	return &playerState{nickname: nickname}
}

func (p *playerState) stateString(myturn bool) string {
	onturn := ""
	if myturn {
		onturn = "-> "
	}
	return fmt.Sprintf("%4v%20v %4v", onturn, p.nickname, p.points)
}

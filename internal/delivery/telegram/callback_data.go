package telegram

import (
	"strconv"
	"strings"
)

// Callback action constants.
const (
	actionAnswer   = "ans"
	actionQuiz     = "quiz"
	actionFinish   = "finish"
	actionProgress = "progress"
)

// callbackData represents structured callback data.
type callbackData struct {
	Action string
	Params []string
	Raw    string
}

// encode creates callback string.
func (cd callbackData) encode() string {
	if len(cd.Params) == 0 {
		return cd.Action
	}
	return cd.Action + ":" + strings.Join(cd.Params, ":")
}

// decodeCallback parses callback data string.
func decodeCallback(data string) callbackData {
	parts := strings.Split(data, ":")
	return callbackData{
		Action: parts[0],
		Params: parts[1:],
		Raw:    data,
	}
}

// answerCallback is a decoded answer button press.
type answerCallback struct {
	SessionID string
	Position  int
	Option    int
}

// buildAnswerCallback builds callback data for answering the question at
// position. Telegram limits callback data to 64 bytes, which a UUID
// session id and two small integers fit into.
func buildAnswerCallback(sessionID string, position, option int) string {
	return callbackData{
		Action: actionAnswer,
		Params: []string{sessionID, strconv.Itoa(position), strconv.Itoa(option)},
	}.encode()
}

func parseAnswerCallback(cd callbackData) (answerCallback, bool) {
	if cd.Action != actionAnswer || len(cd.Params) != 3 || cd.Params[0] == "" {
		return answerCallback{}, false
	}
	pos, err1 := strconv.Atoi(cd.Params[1])
	opt, err2 := strconv.Atoi(cd.Params[2])
	if err1 != nil || err2 != nil || pos < 0 || opt < 0 {
		return answerCallback{}, false
	}
	return answerCallback{SessionID: cd.Params[0], Position: pos, Option: opt}, true
}

// buildQuizStartCallback builds callback data for starting a session in mode.
func buildQuizStartCallback(mode string) string {
	return callbackData{Action: actionQuiz, Params: []string{mode}}.encode()
}

// buildFinishCallback builds callback data for finishing a session early.
func buildFinishCallback(sessionID string) string {
	return callbackData{Action: actionFinish, Params: []string{sessionID}}.encode()
}

// buildProgressCallback builds callback data for opening a topic's progress.
func buildProgressCallback(topic string) string {
	return callbackData{Action: actionProgress, Params: []string{topic}}.encode()
}

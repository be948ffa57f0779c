package gonogo

import (
	"fmt"
	"strings"
)

// WelcomeScreen introduces the task.
func WelcomeScreen(responseKey Key) Screen {
	return Screen{
		Name: "welcome",
		Text: fmt.Sprintf("Welcome to the experiment.\n\n"+
			"You will see pictures of faces, one at a time. "+
			"Press %s as fast as you can when the face shows the Go expression, "+
			"and do nothing when it shows the No-Go expression.\n\n"+
			"Press %s to continue.", strings.ToUpper(string(responseKey)), strings.ToUpper(string(KeyContinue))),
	}
}

// HalfScreen tells which category is Go for the coming half. The No-Go
// category is derived from goCategory.
func HalfScreen(half, halves int, goCategory Emotion) Screen {
	noGo := goCategory.Opposite()
	text := fmt.Sprintf("Part %d of %d.\n\n"+
		"Respond to %s faces (Go).\n"+
		"Do not respond to %s faces (No-Go).\n\n"+
		"Press %s to start.",
		half, halves,
		strings.ToLower(goCategory.String()),
		strings.ToLower(noGo.String()),
		strings.ToUpper(string(KeyContinue)),
	)
	if half > 1 {
		text = "The rules have changed.\n\n" + text
	}
	return Screen{
		Name: fmt.Sprintf("half_%d", half),
		Text: text,
	}
}

// QuestionnaireScreen precedes the rating questions.
func QuestionnaireScreen() Screen {
	return Screen{
		Name: "questionnaire",
		Text: fmt.Sprintf("The task is finished.\n\n"+
			"Please answer a few questions on a scale from %d to %d.\n\n"+
			"Press %s to continue.", RatingMin, RatingMax, strings.ToUpper(string(KeyContinue))),
	}
}

// GoodbyeScreen ends the session.
func GoodbyeScreen() Screen {
	return Screen{
		Name: "goodbye",
		Text: "Thank you for participating.\n\nPress " + strings.ToUpper(string(KeyContinue)) + " to exit.",
	}
}

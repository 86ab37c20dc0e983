package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/studybuddy/internal/domain"
)

const (
	subjectPrefix   = "S:"
	topicPrefix     = "T:"
	questionPrefix  = "Q:"
	importantPrefix = "I:"
	separator       = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
)

// ErrIncompleteCard marks a question that has no subject or topic in scope.
var ErrIncompleteCard = errors.New("question without subject or topic")

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a question bank from r.
//
// S: and T: set the subject and topic for every following question until
// they are set again. Q: starts a question whose text runs until the next
// prefix or separator. I: yes marks the current question important.
//
// Questions missing a subject or topic are skipped and reported in the
// returned error, which wraps ErrIncompleteCard; the other cards are still
// returned.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var (
		cards       []domain.Card
		problems    []error
		subject     string
		topic       string
		currentCard domain.Card
		block       []string
		lineNo      int
	)
	currentState := seeking

	finishCard := func() {
		if currentState != readingQuestion {
			return
		}
		currentCard.Text = strings.TrimSpace(strings.Join(block, "\n"))
		block = nil
		currentState = seeking

		switch {
		case currentCard.Text == "":
		case currentCard.Subject == "" || currentCard.Topic == "":
			problems = append(problems, fmt.Errorf("line %d: %w", currentCard.Line, ErrIncompleteCard))
		default:
			cards = append(cards, currentCard)
		}
		currentCard = domain.Card{}
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == separator:
			finishCard()
		case strings.HasPrefix(line, subjectPrefix):
			finishCard()
			subject = value(line, subjectPrefix)
		case strings.HasPrefix(line, topicPrefix):
			finishCard()
			topic = value(line, topicPrefix)
		case strings.HasPrefix(line, questionPrefix):
			finishCard() // A new question always starts a new card
			currentState = readingQuestion
			currentCard = domain.Card{Subject: subject, Topic: topic, Line: lineNo}
			block = append(block, value(line, questionPrefix))
		case strings.HasPrefix(line, importantPrefix):
			if currentState == readingQuestion {
				currentCard.Important = isYes(value(line, importantPrefix))
			}
		case currentState == readingQuestion:
			block = append(block, line)
		}
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, errors.Join(problems...)
}

func value(line, prefix string) string {
	return strings.TrimSpace(line[len(prefix):])
}

func isYes(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

package domain

// Card is a question as written in a question bank file, before it is
// stored. Subject and Topic are names, not IDs.
type Card struct {
	Subject   string
	Topic     string
	Text      string
	Important bool
	Line      int // line of the Q: prefix
}

// ABOUTME: Terminal presentation adapter for the conversation engine
// ABOUTME: Renders chat bubbles, typing updates, and form prompts with ANSI color

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// terminalRenderer flattens the lightweight markdown the backend sends
// into plain terminal text.
type terminalRenderer struct{}

func (terminalRenderer) Render(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	return text
}

// terminalPresenter writes the conversation to stdout. Streaming updates
// rewrite the current line in place so tokens appear to type themselves.
type terminalPresenter struct {
	botPrefix  *color.Color
	userPrefix *color.Color
	errText    *color.Color
	promptText *color.Color
	dimText    *color.Color
	okText     *color.Color

	typingActive bool
}

func newTerminalPresenter() *terminalPresenter {
	return &terminalPresenter{
		botPrefix:  color.New(color.FgCyan, color.Bold),
		userPrefix: color.New(color.FgBlue),
		errText:    color.New(color.FgRed),
		promptText: color.New(color.FgYellow),
		dimText:    color.New(color.FgHiBlack),
		okText:     color.New(color.FgGreen),
	}
}

// clearLine erases the in-progress typing line before printing over it.
func (p *terminalPresenter) clearLine() {
	if p.typingActive {
		fmt.Print("\r\033[K")
	}
}

func (p *terminalPresenter) AppendUserMessage(text string) {
	p.userPrefix.Print("you> ")
	fmt.Println(text)
}

func (p *terminalPresenter) AppendBotMessage(text string) {
	p.botPrefix.Print("bot> ")
	fmt.Println(text)
}

func (p *terminalPresenter) ShowTyping() {
	p.dimText.Print("bot is typing…")
	p.typingActive = true
}

func (p *terminalPresenter) ReplaceTyping(text string) {
	p.clearLine()
	p.botPrefix.Print("bot> ")
	// keep multi-line replies on their own lines, but stay on the last
	// one so the next token can overwrite it
	fmt.Print(lastLineOpen(text))
	p.typingActive = true
}

func (p *terminalPresenter) FinalizeReply(text string) {
	p.clearLine()
	p.typingActive = false
	p.botPrefix.Print("bot> ")
	fmt.Println(text)
}

// lastLineOpen prints all but the final line of text and returns the
// final line unterminated.
func lastLineOpen(text string) string {
	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		return text
	}
	fmt.Print(text[:idx+1])
	return text[idx+1:]
}

func (p *terminalPresenter) ShowInputError(msg string) {
	p.clearLine()
	p.typingActive = false
	p.errText.Printf("! %s\n", msg)
}

func (p *terminalPresenter) ClearInputError() {}

func (p *terminalPresenter) ClearInput() {}

func (p *terminalPresenter) ShowRatingPrompt() {
	p.promptText.Println("Was this conversation helpful? Reply /up or /down to rate it.")
}

func (p *terminalPresenter) HideRatingPrompt() {}

func (p *terminalPresenter) EnterContactMode() {
	p.promptText.Println("Leave your details and the team will follow up by email.")
}

func (p *terminalPresenter) SetContactBusy(busy bool) {
	if busy {
		p.dimText.Println("sending…")
	}
}

func (p *terminalPresenter) MarkContactEmailInvalid() {
	p.errText.Println("! An email address is required.")
}

func (p *terminalPresenter) ShowContactConfirmation() {
	p.okText.Println("Thanks! Your message has been sent.")
}

// ABOUTME: Presentation adapter interface the engine drives
// ABOUTME: Rendering is external; the engine only dictates what and when

package conversation

// Presenter is the narrow surface the engine needs from the rendering
// layer. All arguments are pre-rendered HTML; the presenter decides how
// they reach the screen.
type Presenter interface {
	// AppendUserMessage adds a user bubble to the message log.
	AppendUserMessage(html string)
	// AppendBotMessage adds a bot bubble outside the typing flow
	// (welcome message).
	AppendBotMessage(html string)

	// ShowTyping renders the typing indicator placeholder.
	ShowTyping()
	// ReplaceTyping swaps the typing indicator content in place. Used
	// for streamed partials and for fixed error texts.
	ReplaceTyping(html string)
	// FinalizeReply replaces the typing indicator with the completed
	// bot reply. Called exactly once per successful exchange.
	FinalizeReply(html string)

	// ShowInputError surfaces a local validation error near the input.
	ShowInputError(message string)
	// ClearInputError removes any visible input error.
	ClearInputError()
	// ClearInput empties the input field.
	ClearInput()

	// ShowRatingPrompt reveals the binary rating control.
	ShowRatingPrompt()
	// HideRatingPrompt removes the rating control.
	HideRatingPrompt()

	// EnterContactMode hides the message log and input row and reveals
	// the contact form.
	EnterContactMode()

	// Contact form control states, driven by the fallback workflow.
	SetContactBusy(busy bool)
	MarkContactEmailInvalid()
	ShowContactConfirmation()
}

// ContentRenderer converts message text (markdown) to HTML. Partial
// streamed input is re-rendered from scratch on every token, so
// truncated markup must render without error.
type ContentRenderer interface {
	Render(text string) string
}

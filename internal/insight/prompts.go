package insight

import "fmt"

const systemPrompt = `You are a meeting assistant listening to a live transcript. Be concise and concrete. Only use information present in the transcript.`

const livePromptFmt = `Here is the transcript of a meeting in progress:

---
%s
---

Respond with these sections, each as a short bulleted list (omit a section if you have nothing):

SUGGESTED QUESTIONS:
Questions the listener could ask right now to clarify or move the discussion forward.

MEETING INSIGHTS:
Notable points, risks, or themes so far.

DECISIONS:
Anything the participants have decided or agreed on.

ACTION ITEMS:
Concrete tasks someone committed to.`

const finalPromptFmt = `Here is the complete transcript of a meeting that just ended:

---
%s
---

Respond with these sections, each as a short bulleted list (omit a section if you have nothing):

MEETING INSIGHTS:
The key points and outcomes of the meeting.

DECISIONS:
Everything the participants decided or agreed on.

ACTION ITEMS:
Concrete tasks with owners where stated.

FOLLOW UPS:
Open threads worth revisiting in a future meeting.`

// LivePrompt builds the periodic in-meeting prompt.
func LivePrompt(transcript string) string {
	return fmt.Sprintf(livePromptFmt, transcript)
}

// FinalPrompt builds the end-of-meeting summary prompt.
func FinalPrompt(transcript string) string {
	return fmt.Sprintf(finalPromptFmt, transcript)
}

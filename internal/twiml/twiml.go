package twiml

import "fmt"

// Fixed voice documents for the donor callout flow. These are templates in
// the loosest sense: the only variable is the gather action URL.

const initialPrompt = `<?xml version='1.0' encoding='UTF-8'?>
<Response>
    <Say>This is an urgent request for blood donation. If you are available to donate, press 1. Otherwise, you may hang up.</Say>
    <Gather action="%s" method="POST" numDigits="1">
        <Say>Please press 1 to confirm your availability.</Say>
    </Gather>
    <Say>No input received. Goodbye!</Say>
</Response>`

const confirmedPrompt = `<?xml version='1.0' encoding='UTF-8'?>
<Response>
    <Say>Thank you for confirming your availability. We will contact you shortly. Goodbye!</Say>
</Response>`

const declinedPrompt = `<?xml version='1.0' encoding='UTF-8'?>
<Response>
    <Say>Thank you for your response. Goodbye!</Say>
</Response>`

const notFoundPrompt = `<?xml version='1.0' encoding='UTF-8'?>
<Response>
    <Say>Sorry, we could not find your record. Goodbye!</Say>
</Response>`

// InitialPrompt announces the request and gathers exactly one keypress.
func InitialPrompt(gatherURL string) string {
    return fmt.Sprintf(initialPrompt, gatherURL)
}

func Confirmed() string {
    return confirmedPrompt
}

func Declined() string {
    return declinedPrompt
}

func NotFound() string {
    return notFoundPrompt
}

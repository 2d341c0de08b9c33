package email

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const clinicName = "Kidus Pediatric Clinic"

func wrapHTML(title, body string) string {
	return fmt.Sprintf(`<!doctype html><html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2 style="color:#0e7490">%s</h2>%s
<p style="color:#6b7280;font-size:12px">%s</p></body></html>`,
		html.EscapeString(title), body, clinicName)
}

func p(s string) string {
	return "<p>" + html.EscapeString(s) + "</p>"
}

// PasswordResetOTP carries the reset code in English and Amharic.
func PasswordResetOTP(to, name, code string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())
	text := fmt.Sprintf(
		"Hello %s,\n\nYour password reset code is %s. It expires in %d minutes.\n\n"+
			"ሰላም %s፣ የይለፍ ቃል መቀየሪያ ኮድዎ %s ነው። በ%d ደቂቃ ውስጥ ያበቃል።\n\n"+
			"If you did not request this, ignore this email.",
		name, code, minutes, name, code, minutes)

	body := p("Hello "+name+",") +
		fmt.Sprintf(`<p style="font-size:28px;letter-spacing:6px"><b>%s</b></p>`, html.EscapeString(code)) +
		p(fmt.Sprintf("This code expires in %d minutes.", minutes)) +
		p(fmt.Sprintf("የይለፍ ቃል መቀየሪያ ኮድዎ ከላይ ያለው ነው። በ%d ደቂቃ ውስጥ ያበቃል።", minutes)) +
		p("If you did not request this, ignore this email.")

	return Message{
		To:       []string{to},
		Subject:  "Password reset code / የይለፍ ቃል መቀየሪያ ኮድ",
		TextBody: text,
		HTMLBody: wrapHTML("Password reset", body),
	}
}

func Welcome(to, name string) Message {
	return Message{
		To:       []string{to},
		Subject:  "Welcome to " + clinicName,
		TextBody: fmt.Sprintf("Hello %s,\n\nYour account has been created. እንኳን ደህና መጡ!", name),
		HTMLBody: wrapHTML("Welcome", p("Hello "+name+",")+p("Your account has been created.")+p("እንኳን ደህና መጡ!")),
	}
}

// AppointmentDetails is the subset of an appointment shown in emails and alerts.
type AppointmentDetails struct {
	PatientName string
	DoctorName  string
	Department  string
	Date        string
	Time        string
	Phone       string
	Email       string
	Message     string
	Reason      string
}

func AppointmentReceived(to string, a AppointmentDetails) Message {
	text := fmt.Sprintf("Hello,\n\nWe received the appointment request for %s on %s at %s. "+
		"We will contact you to confirm.\n\nየቀጠሮ ጥያቄዎ ደርሶናል። በቅርቡ እናረጋግጥልዎታለን።",
		a.PatientName, a.Date, a.Time)

	return Message{
		To:       []string{to},
		Subject:  "Appointment request received / የቀጠሮ ጥያቄ ደርሷል",
		TextBody: text,
		HTMLBody: wrapHTML("Appointment request received",
			p(fmt.Sprintf("We received the appointment request for %s on %s at %s.", a.PatientName, a.Date, a.Time))+
				p("We will contact you to confirm.")+
				p("የቀጠሮ ጥያቄዎ ደርሶናል። በቅርቡ እናረጋግጥልዎታለን።")),
	}
}

func AppointmentConfirmed(to string, a AppointmentDetails) Message {
	line := fmt.Sprintf("The appointment for %s on %s at %s is confirmed.", a.PatientName, a.Date, a.Time)
	if a.DoctorName != "" {
		line = fmt.Sprintf("The appointment for %s with %s on %s at %s is confirmed.", a.PatientName, a.DoctorName, a.Date, a.Time)
	}
	return Message{
		To:       []string{to},
		Subject:  "Appointment confirmed / ቀጠሮዎ ተረጋግጧል",
		TextBody: line + "\n\nቀጠሮዎ ተረጋግጧል።",
		HTMLBody: wrapHTML("Appointment confirmed", p(line)+p("ቀጠሮዎ ተረጋግጧል።")),
	}
}

func AppointmentCancelled(to string, a AppointmentDetails) Message {
	line := fmt.Sprintf("The appointment for %s on %s at %s has been cancelled.", a.PatientName, a.Date, a.Time)
	body := p(line)
	text := line
	if a.Reason != "" {
		body += p("Reason: " + a.Reason)
		text += "\nReason: " + a.Reason
	}
	return Message{
		To:       []string{to},
		Subject:  "Appointment cancelled / ቀጠሮዎ ተሰርዟል",
		TextBody: text + "\n\nቀጠሮዎ ተሰርዟል።",
		HTMLBody: wrapHTML("Appointment cancelled", body+p("ቀጠሮዎ ተሰርዟል።")),
	}
}

func ResultReady(to, name, title, portalURL string) Message {
	link := portalURL
	text := fmt.Sprintf("Hello %s,\n\nA new result (%s) is available. Sign in to view it: %s\n\nአዲስ የምርመራ ውጤት ተለቋል።",
		name, title, link)

	body := p("Hello "+name+",") +
		p(fmt.Sprintf("A new result (%s) is available.", title)) +
		fmt.Sprintf(`<p><a href="%s">View results</a></p>`, html.EscapeString(link)) +
		p("አዲስ የምርመራ ውጤት ተለቋል።")

	return Message{
		To:       []string{to},
		Subject:  "Your result is ready / ውጤትዎ ደርሷል",
		TextBody: text,
		HTMLBody: wrapHTML("Result ready", body),
	}
}

// Newsletter addresses every recipient through BCC.
func Newsletter(subject, message, unsubscribeURL string, recipients []string) Message {
	var body strings.Builder
	for _, para := range strings.Split(message, "\n\n") {
		body.WriteString(p(para))
	}
	if unsubscribeURL != "" {
		body.WriteString(fmt.Sprintf(`<p style="font-size:12px"><a href="%s">Unsubscribe</a></p>`,
			html.EscapeString(unsubscribeURL)))
	}

	return Message{
		BCC:      recipients,
		Subject:  subject,
		TextBody: message + "\n\nUnsubscribe: " + unsubscribeURL,
		HTMLBody: wrapHTML(subject, body.String()),
	}
}

package reminder

import (
	"fmt"
	"strings"

	"bill_reminder_service/internal/domain/bill"
	"bill_reminder_service/internal/domain/notify"
)

const dueDateLayout = "Monday, 2 January 2006"

// Compose renders the reminder for a bill at the given tier. It is pure:
// identical inputs produce byte-identical output, and two different tiers for
// the same bill never render the same bytes (the subject prefix and lead line
// differ per tier). daysLeft is the signed day delta from Classify.
func Compose(b *bill.Bill, tier Tier, daysLeft int) notify.Message {
	deadline := b.DueDate.Format(dueDateLayout)
	label := b.Label()

	var subject, lead string
	switch tier {
	case TierOverdue:
		overdueDays := -daysLeft
		subject = fmt.Sprintf("OVERDUE: %s payment was due %s", label, deadline)
		lead = fmt.Sprintf("Your %s payment is now %s overdue. Late fees or penalties may already apply.", label, pluralDays(overdueDays))
	case TierDueToday:
		subject = fmt.Sprintf("URGENT: %s payment is due TODAY", label)
		lead = fmt.Sprintf("Your %s payment is due TODAY (%s). Action is required immediately.", label, deadline)
	case TierDueTomorrow:
		subject = fmt.Sprintf("FINAL REMINDER: %s payment is due tomorrow", label)
		lead = fmt.Sprintf("Your %s payment is due TOMORROW (%s).", label, deadline)
	case TierDueSoon:
		subject = fmt.Sprintf("IMPORTANT: %s payment due in %s", label, pluralDays(daysLeft))
		lead = fmt.Sprintf("Your %s payment is due in %s, on %s.", label, pluralDays(daysLeft), deadline)
	case TierDueThisWeek:
		subject = fmt.Sprintf("Reminder: %s payment due in %s", label, pluralDays(daysLeft))
		lead = fmt.Sprintf("A reminder that your %s payment is due in %s, on %s. A good time to start preparing.", label, pluralDays(daysLeft), deadline)
	default:
		return notify.Message{}
	}

	var body strings.Builder
	body.WriteString(lead)
	body.WriteString("\n\nBill Details:\n")
	fmt.Fprintf(&body, "- Invoice Number: %s\n", orNA(b.InvoiceNumber))
	fmt.Fprintf(&body, "- Supplier: %s\n", orNA(b.SupplierName))
	fmt.Fprintf(&body, "- Amount: ₹%s\n", b.Amount.StringFixed(2))
	fmt.Fprintf(&body, "- Due Date: %s\n", deadline)
	fmt.Fprintf(&body, "- Days Left: %d\n", daysLeft)
	body.WriteString("\nPlease ensure payment is made on time to avoid late fees or penalties.\n")

	return notify.Message{Subject: subject, Body: body.String()}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

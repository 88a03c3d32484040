package extract

// premiumListInstruction is the fixed extraction contract for premium-due
// list PDFs. The total-vs-installment premium distinction is the single most
// error-prone rule in this document type, hence the repeated emphasis.
const premiumListInstruction = `You are reading a premium due list document.
Extract every policy row into a JSON array. Each element must have exactly
these fields:
- "policyNumber": string, digits only, no spaces or separators
- "customerName": string, the policy holder's name as printed
- "mod": string, the payment mode abbreviation, one of "qly", "hly", "yly"
- "fup": string, the follow-up month and year as printed (e.g. "03/2026")
- "amount": number, the TOTAL premium due for the period. The document also
  shows a per-installment premium column; NEVER use the installment value.
  Always take the amount from the total premium column.
- "commission": number, the agent commission; use 0 if the column is absent

Return ONLY the JSON array, with no commentary. Skip header and footer rows.`

// receiptInstruction is the fixed extraction contract for payment receipt
// photos.
const receiptInstruction = `You are reading a photo of a premium payment
receipt. Return ONLY a JSON object with exactly these fields:
- "policyNumber": string of digits only (9 digits expected), or null if the
  number is not clearly readable
- "customerName": string, the customer name as printed, or null if not
  clearly readable
- "confidence": number between 0 and 1 reflecting how legible the receipt is

Never guess: if a field is blurry or cut off, return null for it.`

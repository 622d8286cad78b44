// Package ofx imports OFX/QFX bank and credit card statements as transactions.
package ofx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/cadence/internal/model"
)

// ErrNoStatements is returned when a file parses but carries no statements.
var ErrNoStatements = errors.New("no bank or credit card statements found")

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line missing their closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	// Trailing store numbers such as "#1234".
	storeNumberRegex = regexp.MustCompile(`\s+#\d+$`)
)

var purchasePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
	"RECURRING PAYMENT ",
}

var genericDescriptions = map[string]bool{
	"DEBIT":           true,
	"CREDIT":          true,
	"PURCHASE":        true,
	"PAYMENT":         true,
	"POS TRANSACTION": true,
	"CARD PURCHASE":   true,
}

// Parser converts OFX statements into transactions owned by one user.
type Parser struct {
	userID string
}

// NewParser creates a parser that assigns imported transactions to userID.
func NewParser(userID string) *Parser {
	return &Parser{userID: userID}
}

// preprocessOFX fixes common formatting issues in bank-exported files.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX stream. Debits come back negative, matching
// the sign the statement uses.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.Transaction
	statements := 0

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		statements++
		if stmt.BankTranList != nil {
			transactions = p.appendStatement(transactions, string(stmt.BankAcctFrom.AcctID), stmt.BankTranList.Transactions)
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		statements++
		if stmt.BankTranList != nil {
			transactions = p.appendStatement(transactions, string(stmt.CCAcctFrom.AcctID), stmt.BankTranList.Transactions)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if statements == 0 {
		return nil, ErrNoStatements
	}

	slog.Info("Parsed OFX file",
		"user_id", p.userID,
		"transactions", len(transactions),
		"statements", statements)

	return transactions, nil
}

func (p *Parser) appendStatement(dst []model.Transaction, accountID string, txns []ofxgo.Transaction) []model.Transaction {
	for _, ofxTx := range txns {
		dst = append(dst, p.convertTransaction(ofxTx, accountID))
	}
	return dst
}

// convertTransaction maps one statement line onto a transaction. FITIDs are
// only unique within an account, so the account is folded into the ID.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) model.Transaction {
	amount, _ := ofxTx.TrnAmt.Float64()

	return model.Transaction{
		ID:       accountID + ":" + string(ofxTx.FiTID),
		UserID:   p.userID,
		Merchant: extractMerchantName(ofxTx),
		Amount:   amount,
		Category: categoryFor(ofxTx.TrnType),
		Date:     ofxTx.DtPosted.Time.UTC(),
	}
}

// categoryFor infers the few categories OFX transaction types imply.
func categoryFor(trnType fmt.Stringer) string {
	switch fmt.Sprintf("%v", trnType) {
	case "INT":
		return "Interest"
	case "FEE", "SRVCHG":
		return "Bank Fees"
	case "ATM":
		return "Cash & ATM"
	}
	return ""
}

// extractMerchantName picks the cleanest merchant string in the record.
func extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && genericDescriptions[strings.ToUpper(name)] {
		name = strings.TrimSpace(string(tx.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range purchasePrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " authorization dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	// Processor reference codes after '*' change on every charge.
	if i := strings.Index(name, "*"); i > 0 {
		name = name[:i]
	}

	return strings.TrimSpace(storeNumberRegex.ReplaceAllString(name, ""))
}

package sunat

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
)

// ParseCDRZip descomprime la constancia de recepción y la interpreta.
func ParseCDRZip(zipBytes []byte) (*entity.Acknowledgment, error) {
	_, content, err := UnzipFirst(zipBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return ParseApplicationResponse(content)
}

// ParseApplicationResponse lee un ApplicationResponse (CDR) UBL 2.0/2.1.
func ParseApplicationResponse(data []byte) (*entity.Acknowledgment, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "ApplicationResponse" {
		return nil, fmt.Errorf("%w: no es un ApplicationResponse", domain.ErrMalformedResponse)
	}
	resp := root.FindElement("./cac:DocumentResponse/cac:Response")
	if resp == nil {
		return nil, fmt.Errorf("%w: sin cac:DocumentResponse", domain.ErrMalformedResponse)
	}
	code := strings.TrimSpace(childText(resp, "cbc:ResponseCode"))
	if code == "" {
		return nil, fmt.Errorf("%w: sin cbc:ResponseCode", domain.ErrMalformedResponse)
	}

	ack := &entity.Acknowledgment{
		Code:        code,
		Description: strings.TrimSpace(childText(resp, "cbc:Description")),
		SenderID:    textAt(root, "./cac:SenderParty/cac:PartyIdentification/cbc:ID"),
		ReceiverID:  textAt(root, "./cac:ReceiverParty/cac:PartyIdentification/cbc:ID"),
	}
	for _, st := range resp.SelectElements("cac:Status") {
		ack.Reasons = append(ack.Reasons, entity.StatusReason{
			Code:   strings.TrimSpace(childText(st, "cbc:StatusReasonCode")),
			Reason: strings.TrimSpace(childText(st, "cbc:StatusReason")),
		})
	}
	for _, n := range root.SelectElements("cbc:Note") {
		if t := strings.TrimSpace(n.Text()); t != "" {
			ack.Notes = append(ack.Notes, t)
		}
	}
	if ref := root.FindElement("./cac:DocumentResponse/cac:DocumentReference"); ref != nil {
		ack.DocumentID = strings.TrimSpace(childText(ref, "cbc:ID"))
		ack.TypeCode = strings.TrimSpace(childText(ref, "cbc:DocumentTypeCode"))
		ack.Hash = textAt(ref, "./cac:Attachment/cac:ExternalReference/cbc:DocumentHash")
		if d, err := time.Parse(dateLayout, strings.TrimSpace(childText(ref, "cbc:IssueDate"))); err == nil {
			ack.IssueDate = d
		}
	}
	if ack.DocumentID == "" {
		ack.DocumentID = strings.TrimSpace(childText(resp, "cbc:ReferenceID"))
	}
	return ack, nil
}

func textAt(el *etree.Element, path string) string {
	if c := el.FindElement(path); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

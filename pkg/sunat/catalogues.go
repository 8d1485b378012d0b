// Package sunat contiene catálogos y validaciones alineados a los anexos de
// comprobantes de pago electrónicos de SUNAT (Perú), UBL 2.1.
package sunat

// =============================================================================
// Catálogo 01 - Código de tipo de documento
// =============================================================================

const (
	DocTypeInvoice      = "01" // Factura
	DocTypeReceipt      = "03" // Boleta de venta
	DocTypeCreditNote   = "07" // Nota de crédito
	DocTypeDebitNote    = "08" // Nota de débito
	DocTypeDeliveryNote = "09" // Guía de remisión remitente
	DocTypeSummary      = "RC" // Resumen diario de boletas
)

// =============================================================================
// Catálogo 06 - Tipo de documento de identidad
// =============================================================================

const (
	IDTypeNonDomiciled = "0" // Doc. trib. no dom. sin RUC
	IDTypeDNI          = "1"
	IDTypeForeignCard  = "4" // Carnet de extranjería
	IDTypeRUC          = "6"
	IDTypePassport     = "7"
)

// =============================================================================
// Catálogo 05 - Códigos de tipos de tributos
// =============================================================================

const (
	TaxIGV     = "1000"
	TaxIVAP    = "1016"
	TaxISC     = "2000"
	TaxICBPER  = "7152"
	TaxExport  = "9995"
	TaxFree    = "9996" // Gratuito
	TaxExempt  = "9997"
	TaxUnaffec = "9998"
	TaxOther   = "9999"
)

// TaxScheme nombre y código internacional de cada tributo del catálogo 05.
type TaxScheme struct {
	Name        string
	TaxTypeCode string
}

// TaxSchemes tabla del catálogo 05.
var TaxSchemes = map[string]TaxScheme{
	TaxIGV:     {Name: "IGV", TaxTypeCode: "VAT"},
	TaxIVAP:    {Name: "IVAP", TaxTypeCode: "VAT"},
	TaxISC:     {Name: "ISC", TaxTypeCode: "EXC"},
	TaxICBPER:  {Name: "ICBPER", TaxTypeCode: "OTH"},
	TaxExport:  {Name: "EXP", TaxTypeCode: "FRE"},
	TaxFree:    {Name: "GRA", TaxTypeCode: "FRE"},
	TaxExempt:  {Name: "EXO", TaxTypeCode: "VAT"},
	TaxUnaffec: {Name: "INA", TaxTypeCode: "FRE"},
	TaxOther:   {Name: "OTROS", TaxTypeCode: "OTH"},
}

// =============================================================================
// Catálogo 07 - Tipo de afectación del IGV
// =============================================================================

const (
	ExemptionTaxed         = "10" // Gravado - Operación onerosa
	ExemptionTaxedDonation = "13" // Gravado - Retiro por donación
	ExemptionExempt        = "20" // Exonerado - Operación onerosa
	ExemptionExemptFree    = "21" // Exonerado - Transferencia gratuita
	ExemptionUnaffected    = "30" // Inafecto - Operación onerosa
	ExemptionExport        = "40" // Exportación
)

// =============================================================================
// Catálogo 09 - Tipo de nota de crédito
// =============================================================================

// CreditReasons texto del catálogo 09; cada tenant puede sobreescribirlo en sus propiedades.
var CreditReasons = map[string]string{
	"01": "Anulación de la operación",
	"02": "Anulación por error en el RUC",
	"03": "Corrección por error en la descripción",
	"04": "Descuento global",
	"05": "Descuento por ítem",
	"06": "Devolución total",
	"07": "Devolución por ítem",
	"08": "Bonificación",
	"09": "Disminución en el valor",
	"10": "Otros conceptos",
	"13": "Ajustes - montos y/o fechas de pago",
}

// =============================================================================
// Catálogo 16 - Tipo de precio
// =============================================================================

const (
	PriceTypeOnerous = "01" // Precio unitario (incluye IGV)
	PriceTypeFree    = "02" // Valor referencial en operaciones no onerosas
)

// =============================================================================
// Catálogo 18 - Modalidad de traslado / Catálogo 20 - Motivo de traslado
// =============================================================================

const (
	TransportModePublic  = "01" // Transporte público (tercero)
	TransportModePrivate = "02" // Transporte privado (propio)

	TransferReasonSale = "01" // Venta
)

// =============================================================================
// Catálogo 53 - Cargos o descuentos
// =============================================================================

const (
	ChargeReasonGlobalDiscount = "02" // Descuentos globales que afectan la base imponible
	ChargeReasonPerception     = "51" // Percepción venta interna
	ChargeReasonRetention      = "62" // Retención del IGV
)

// =============================================================================
// Unidades de medida (UN/ECE rec 20)
// =============================================================================

const (
	UnitUnit     = "NIU" // Unidad (bienes)
	UnitService  = "ZZ"  // Unidad (servicios)
	UnitKilogram = "KGM"
	UnitTonne    = "TNE"
)

// =============================================================================
// Forma de pago
// =============================================================================

const (
	PaymentCash   = "Contado"
	PaymentCredit = "Credito"
)

// =============================================================================
// Códigos de respuesta del CDR
// =============================================================================

const (
	ResponseAccepted = "0"
	// Rango de códigos de rechazo (errores que invalidan el comprobante).
	RejectionRangeFrom = 2000
	RejectionRangeTo   = 3999
)

package extraction

import (
	"github.com/rs/zerolog"
	"ocrscan/internal/logger"
)

// Processor runs the full extraction for one text blob.
type Processor struct {
	extractor *Extractor
	log       zerolog.Logger
}

// NewProcessor creates a Processor with its own Extractor.
func NewProcessor() *Processor {
	return &Processor{
		extractor: NewExtractor(),
		log:       logger.WithComponent("extraction"),
	}
}

// Extractor exposes the field extractor used by the processor.
func (p *Processor) Extractor() *Extractor {
	return p.extractor
}

// Process extracts identifier, date, and amount from rawText and decides the
// outcome. Success depends only on the identifier; date and amount are
// attached whenever they are found. Calling Process twice with the same
// input yields equal results.
func (p *Processor) Process(rawText string) Result {
	if rawText == "" {
		p.log.Warn().Msg(ErrInputMissing.Error())
		return Result{
			State:        StateError,
			ErrorMessage: ErrInputMissing.Error(),
			Err:          ErrInputMissing,
		}
	}

	id, idFound := p.extractor.ExtractIdentifier(rawText)
	date, dateFound := p.extractor.ExtractDate(rawText)
	amount, amountFound := p.extractor.ExtractAmount(rawText)

	result := Result{State: StateError}

	switch {
	case idFound && ValidateThaiID(id):
		result.Succeeded = true
		result.State = StateProcessed
		result.IdentifiedNumber = id
		p.log.Info().Str("identifier", id).Msg("Extraction succeeded")
	case idFound:
		result.Err = invalidIdentifierError(id)
		result.ErrorMessage = result.Err.Error()
		p.log.Warn().Str("identifier", id).Msg(result.ErrorMessage)
	default:
		result.Err = ErrIdentifierNotFound
		result.ErrorMessage = ErrIdentifierNotFound.Error()
		p.log.Warn().Msg(result.ErrorMessage)
	}

	if dateFound {
		result.IdentifiedDate = FormatDate(date)
	}
	if amountFound {
		result.IdentifiedAmount = &amount
	}

	return result
}

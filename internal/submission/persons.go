package submission

import (
	"fmt"

	"github.com/garyjia/business-trip/internal/domain/entity"
	"go.uber.org/zap"
)

var personListKeys = []string{"accompanying_persons_panel", "accompanyingPersons", "accompanying_persons"}

// extractPersons builds the accompanying persons. An explicit list of person
// objects is preferred; otherwise the head count is used to synthesize
// count-1 persons sharing one name, with the shared identity document on the
// first one only.
func (e *Extractor) extractPersons(p *Payload) []entity.AccompanyingPerson {
	if items, source, ok := p.list(personListKeys...); ok && len(items) > 0 {
		e.logger.Debug("Accompanying persons from list",
			zap.String("source", string(source)),
			zap.Int("count", len(items)))
		return e.personsFromList(items)
	}
	return e.personsFromHeadCount(p)
}

func (e *Extractor) personsFromList(items []interface{}) []entity.AccompanyingPerson {
	persons := make([]entity.AccompanyingPerson, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			e.logger.Warn("Skipping accompanying person that is not an object", zap.Int("index", i))
			continue
		}
		name, _ := obj["full_name_acc"].(string)
		if name == "" {
			name, _ = obj["fullName"].(string)
		}
		if name == "" {
			e.logger.Warn("Skipping accompanying person without a name", zap.Int("index", i))
			continue
		}
		fileName, _ := obj["accompanying_identity_document_acc_filename"].(string)
		persons = append(persons, entity.AccompanyingPerson{
			FullName:         name,
			IdentityDocument: e.documentFrom(obj["accompanying_identity_document_acc"], fileName),
		})
	}
	return persons
}

func (e *Extractor) personsFromHeadCount(p *Payload) []entity.AccompanyingPerson {
	n, _ := e.resolve(p, keys("number_of_people"), keys("number_of_people"), KindInt, 0).(int)
	if n <= 1 {
		return nil
	}

	var doc *entity.Document
	if raw, _, ok := p.lookup(keys("accompanying_identity_document"), keys("accompanying_identity_document")); ok {
		doc = e.documentFrom(raw, "")
	}
	shared, _ := e.resolve(p, keys("full_name"), keys("full_name"), KindString, "").(string)

	persons := make([]entity.AccompanyingPerson, 0, n-1)
	for i := 0; i < n-1; i++ {
		name := shared
		if name == "" {
			name = fmt.Sprintf("Accompanying Person %d", i+1)
		}
		person := entity.AccompanyingPerson{FullName: name}
		if i == 0 {
			person.IdentityDocument = doc
		}
		persons = append(persons, person)
	}
	e.logger.Debug("Accompanying persons from head count",
		zap.Int("number_of_people", n),
		zap.Bool("with_document", doc != nil))
	return persons
}

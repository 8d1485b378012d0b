// seed_properties genera el SQL para cargar la configuración ElectronicBilling.* de un tenant
// a partir de un archivo .properties (ISO-8859-1, formato Java).
//
// Uso: go run ./cmd/seed_properties <tenant_id> [ruta/ebilling.properties]
// Por defecto lee ebilling.properties del directorio actual y escribe en stdout.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: seed_properties <tenant_id> [archivo.properties]")
		os.Exit(2)
	}
	tenantID := os.Args[1]
	path := "ebilling.properties"
	if len(os.Args) > 2 {
		path = os.Args[2]
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir properties: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	props, err := parseProperties(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer properties: %v\n", err)
		os.Exit(1)
	}
	n := writeSQL(os.Stdout, tenantID, props)
	fmt.Fprintf(os.Stderr, "%d claves %s* para el tenant %s\n", n, entity.PropertyPrefix, tenantID)
}

// parseProperties subconjunto del formato Java: comentarios # y !, separadores = y :,
// continuación con \ al final de línea y escapes \uXXXX.
func parseProperties(r io.Reader) (map[string]string, error) {
	out := map[string]string{}
	sc := bufio.NewScanner(r)
	var pending string
	for sc.Scan() {
		line := strings.TrimLeft(sc.Text(), " \t\f")
		if pending == "" && (line == "" || line[0] == '#' || line[0] == '!') {
			continue
		}
		if strings.HasSuffix(line, `\`) && !strings.HasSuffix(line, `\\`) {
			pending += strings.TrimSuffix(line, `\`)
			continue
		}
		line, pending = pending+line, ""
		key, value := splitProperty(line)
		if key == "" {
			continue
		}
		v, err := unescape(value)
		if err != nil {
			return nil, fmt.Errorf("clave %s: %w", key, err)
		}
		out[key] = v
	}
	if pending != "" {
		key, value := splitProperty(pending)
		if key != "" {
			v, err := unescape(value)
			if err != nil {
				return nil, fmt.Errorf("clave %s: %w", key, err)
			}
			out[key] = v
		}
	}
	return out, sc.Err()
}

func splitProperty(line string) (string, string) {
	i := strings.IndexAny(line, "=:")
	if i < 0 {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
}

func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'u':
			if i+4 >= len(s) {
				return "", fmt.Errorf("escape \\u incompleto")
			}
			r, err := strconv.ParseUint(s[i+1:i+5], 16, 32)
			if err != nil {
				return "", fmt.Errorf("escape \\u%s inválido", s[i+1:i+5])
			}
			b.WriteRune(rune(r))
			i += 4
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

// writeSQL solo las claves ElectronicBilling.*, ordenadas para salida estable.
func writeSQL(w io.Writer, tenantID string, props map[string]string) int {
	keys := make([]string, 0, len(props))
	for k := range props {
		if strings.HasPrefix(k, entity.PropertyPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "-- Configuración de facturación electrónica del tenant %s\n", tenantID)
	for _, k := range keys {
		fmt.Fprintf(w, "INSERT INTO tenant_properties (tenant_id, key, value) VALUES ('%s', '%s', '%s')\n",
			escapeSQL(tenantID), escapeSQL(k), escapeSQL(props[k]))
		fmt.Fprintln(w, "ON CONFLICT (tenant_id, key) DO UPDATE SET value = EXCLUDED.value;")
	}
	return len(keys)
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

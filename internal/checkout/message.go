package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/noah-isme/backend-boutique/internal/cart"
	"github.com/noah-isme/backend-boutique/internal/pricing"
)

// BuildMessage renders the French order summary sent over WhatsApp.
func BuildMessage(customer Customer, lines []cart.Line, summary pricing.Summary, deliveryFee pricing.Money, freeDelivery bool) string {
	var b strings.Builder
	b.WriteString("🛍️ *Nouvelle Commande*\n\n")

	b.WriteString("👤 *Informations Client:*\n")
	fmt.Fprintf(&b, "Nom: %s\n", customer.Name)
	fmt.Fprintf(&b, "Téléphone: %s\n", customer.Phone)
	if customer.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", customer.Email)
	}
	fmt.Fprintf(&b, "Ville: %s\n", customer.City)
	fmt.Fprintf(&b, "Adresse: %s\n\n", customer.Address)

	b.WriteString("📦 *Produits Commandés:*\n")
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, l.Name)
		if l.Color != "" {
			fmt.Fprintf(&b, "   Couleur: %s\n", l.Color)
		}
		if l.Size != "" {
			fmt.Fprintf(&b, "   Taille: %s\n", l.Size)
		}
		fmt.Fprintf(&b, "   Quantité: %d\n", l.Quantity)
		fmt.Fprintf(&b, "   Prix unitaire: %s DHS\n\n", pricing.FormatAmount(l.UnitPrice))
	}

	b.WriteString("💰 *Récapitulatif:*\n")
	fmt.Fprintf(&b, "Sous-total: %s DHS\n", pricing.FormatAmount(summary.RegularTotal))
	for _, label := range summary.AppliedPromotions {
		fmt.Fprintf(&b, "🎁 %s\n", label)
	}
	if summary.Savings > 0 {
		fmt.Fprintf(&b, "Économies: %s DHS\n", pricing.FormatAmount(summary.Savings))
	}
	fmt.Fprintf(&b, "Livraison: %s DHS\n", pricing.FormatAmount(deliveryFee))
	fmt.Fprintf(&b, "*Total: %s DHS*\n\n", pricing.FormatAmount(summary.PromotionalTotal+deliveryFee))

	if freeDelivery {
		b.WriteString("📍 Livraison gratuite partout au Maroc!\n")
	}
	b.WriteString("🚚 Livraison sous 24-48h")
	return b.String()
}

// WhatsAppURL builds the wa.me deep link carrying message.
func WhatsAppURL(number, message string) string {
	number = strings.TrimPrefix(strings.TrimSpace(number), "+")
	return "https://wa.me/" + number + "?text=" + encodeComponent(message)
}

// encodeComponent percent-encodes s with spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
